package client

import (
	"encoding/json"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/omen-linux/omend/pkg/battery"
	"github.com/omen-linux/omend/pkg/recorder"
	"github.com/omen-linux/omend/pkg/state"
)

func (c *Client) GetSnapshot() (*battery.Snapshot, error) {
	ret, err := c.Get("/snapshot")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get snapshot")
	}

	var snap battery.Snapshot
	if err := json.Unmarshal([]byte(ret), &snap); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal snapshot")
	}
	return &snap, nil
}

func (c *Client) GetState() (*state.State, error) {
	ret, err := c.Get("/state")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get state")
	}

	var st state.State
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal state")
	}
	return &st, nil
}

func (c *Client) GetLimit() (int, error) {
	ret, err := c.Get("/limit")
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to get limit")
	}
	limit, err := strconv.Atoi(ret)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to parse limit")
	}
	return limit, nil
}

func (c *Client) SetLimit(l int) (string, error) {
	return c.Put("/limit", strconv.Itoa(l))
}

func (c *Client) SetTopUp(active bool) (string, error) {
	return c.Put("/top-up", strconv.FormatBool(active))
}

// TopUpSchedule is the daemon's scheduled top-up status.
type TopUpSchedule struct {
	Expr string    `json:"expr"`
	Next time.Time `json:"next"`
}

func (c *Client) GetTopUpSchedule() (*TopUpSchedule, error) {
	ret, err := c.Get("/top-up-schedule")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get top-up schedule")
	}

	var sched TopUpSchedule
	if err := json.Unmarshal([]byte(ret), &sched); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal top-up schedule")
	}
	return &sched, nil
}

func (c *Client) SetTopUpSchedule(expr string) (string, error) {
	payload, err := json.Marshal(expr)
	if err != nil {
		return "", err
	}
	return c.Put("/top-up-schedule", string(payload))
}

func (c *Client) GetHistory(n int) ([]recorder.Sample, error) {
	path := "/history"
	if n > 0 {
		path += "?n=" + strconv.Itoa(n)
	}

	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get history")
	}

	var samples []recorder.Sample
	if err := json.Unmarshal([]byte(ret), &samples); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal history")
	}
	return samples, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrap(err, "failed to unmarshal version")
	}
	return v, nil
}
