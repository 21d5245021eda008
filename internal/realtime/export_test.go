package realtime

import "encoding/json"

func jsonString(ev StatusEvent) (string, error) {
	raw, err := json.Marshal(ev)
	return string(raw), err
}
