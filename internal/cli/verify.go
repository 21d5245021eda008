package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/ferag-backend/internal/config"
	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
	"github.com/yungbote/ferag-backend/internal/lifecycle"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

var verifyTimeout time.Duration

var verifyCmd = &cobra.Command{
	Use:   "verify <rag-id>",
	Short: "Report the Fuseki datasets that belong to a RAG",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 30*time.Second, "overall timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ragID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || ragID == 0 {
		return fmt.Errorf("invalid rag id %q", args[0])
	}

	log := logger.Nop()
	cfg, err := config.Load(log)
	if err != nil {
		return err
	}
	store, err := fuseki.New(fuseki.Config{
		BaseURL:      cfg.Fuseki.URL,
		User:         cfg.Fuseki.User,
		Password:     cfg.Fuseki.Password,
		AdminTimeout: cfg.Fuseki.AdminTimeout,
		QueryTimeout: cfg.Fuseki.QueryTimeout,
		LoadTimeout:  cfg.Fuseki.LoadTimeout,
	}, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()
	v, err := lifecycle.New(store, log).Verify(ctx, uint(ragID))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
