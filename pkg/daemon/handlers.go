package daemon

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/omen-linux/omend/pkg/version"
)

const (
	defaultHistoryCount = 20
	maxHistoryCount     = 1000
)

func (d *Daemon) getSnapshot(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.Snapshot())
}

func (d *Daemon) getState(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.State())
}

func (d *Daemon) getLimit(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.State().Limit)
}

func (d *Daemon) setLimit(c *gin.Context) {
	var l int
	if err := c.BindJSON(&l); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if l < 0 || l > 100 {
		err := fmt.Errorf("limit must be between 0 and 100, got %d", l)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := d.SetLimit(l); err != nil {
		logrus.Errorf("setLimit failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// Immediate tick, so the new limit takes effect without waiting for
	// the next scheduled one.
	d.Tick()

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("unplug limit set to %d%%", l))
}

func (d *Daemon) setTopUp(c *gin.Context) {
	var active bool
	if err := c.BindJSON(&active); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	d.SetTopUp(active)
	d.Tick()

	msg := "top-up cancelled"
	if active {
		msg = "top-up activated, will notify at 100%"
	}
	c.IndentedJSON(http.StatusCreated, msg)
}

func (d *Daemon) getTopUpSchedule(c *gin.Context) {
	expr, next := d.sched.Status()
	c.IndentedJSON(http.StatusOK, gin.H{
		"expr": expr,
		"next": next,
	})
}

func (d *Daemon) setTopUpSchedule(c *gin.Context) {
	var expr string
	if err := c.BindJSON(&expr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := d.sched.Set(expr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if expr == "" {
		logrus.Info("top-up schedule cleared")
		c.IndentedJSON(http.StatusCreated, "top-up schedule cleared")
		return
	}

	logrus.Infof("top-up schedule set to %q", expr)
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("top-up schedule set to %q", expr))
}

func (d *Daemon) getHistory(c *gin.Context) {
	n := defaultHistoryCount
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			err := fmt.Errorf("n must be a positive integer, got %q", raw)
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
		n = v
	}
	if n > maxHistoryCount {
		n = maxHistoryCount
	}

	samples, err := d.rec.Recent(n)
	if err != nil {
		logrus.Errorf("getHistory failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusOK, samples)
}

func (d *Daemon) getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
