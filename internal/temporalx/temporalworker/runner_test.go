package temporalworker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.temporal.io/sdk/mocks"

	"github.com/yungbote/ferag-backend/internal/config"
)

func TestNewRunnerValidatesDeps(t *testing.T) {
	_, err := NewRunner(nil, nil, config.Temporal{}, nil, 1)
	assert.ErrorContains(t, err, "temporal client")

	_, err = NewRunner(nil, &mocks.Client{}, config.Temporal{}, nil, 1)
	assert.ErrorContains(t, err, "missing stages")
}

func TestBackoffIsCapped(t *testing.T) {
	assert.Equal(t, startBackoff, backoff(1))
	assert.Equal(t, 2*startBackoff, backoff(2))
	assert.Equal(t, startBackoffMax, backoff(20))
	assert.LessOrEqual(t, backoff(6), 5*time.Second)
}
