package handlers

import (
	"time"

	"github.com/glasswall/icap-management-ui/pkg/session"
	"github.com/glasswall/icap-management-ui/pkg/state/history"
	"github.com/glasswall/icap-management-ui/pkg/state/store"
	"github.com/labstack/echo/v4"
)

type HistorySessions = Sessions[*history.Container, history.State]

// NewHistorySessions binds the manager with the transaction history view.
func NewHistorySessions(
	mgr *session.Manager[*history.Container],
	newContainer func() *history.Container,
) HistorySessions {
	return HistorySessions{
		Manager:   mgr,
		New:       newContainer,
		Start:     (*history.Container).Refresh,
		State:     (*history.Container).State,
		Subscribe: (*history.Container).Subscribe,
	}
}

type filtersRequest struct {
	SelectedFilters []history.FilterChip `json:"selectedFilters"`
	TimeFilter      *history.TimeFilter  `json:"timeFilter,omitempty"`
}

// SetFilters replaces filter chips, and the time range if given, then fetches transactions.
func SetFilters(c echo.Context, container *history.Container) (*store.Op, error) {
	req := filtersRequest{}
	if err := decodeJSON(c, &req); err != nil {
		return nil, err
	}
	if req.SelectedFilters == nil {
		req.SelectedFilters = []history.FilterChip{}
	}
	if tf := req.TimeFilter; tf != nil {
		return container.SetQuery(req.SelectedFilters, tf.TimestampRangeStart, tf.TimestampRangeEnd)
	}
	return container.SetFilters(req.SelectedFilters)
}

func RefreshTransactions(_ echo.Context, container *history.Container) (*store.Op, error) {
	return container.Refresh()
}

func ToggleTimestampSort(_ echo.Context, container *history.Container) (*store.Op, error) {
	return nil, container.ToggleTimestampSort()
}

type selectRequest struct {
	FileId string `json:"fileId"`
}

// SelectFile opens the file given as {"fileId": ...} in the request body.
func SelectFile(c echo.Context, container *history.Container) (*store.Op, error) {
	req := selectRequest{}
	if err := decodeJSON(c, &req); err != nil {
		return nil, err
	}
	return container.SelectFile(req.FileId)
}

func CloseFile(_ echo.Context, container *history.Container) (*store.Op, error) {
	return nil, container.CloseFile()
}

type metricsRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// LoadMetrics fetches metrics between {"from": ..., "to": ...} in the request body.
//
// Without body, the range of the time filter is used.
func LoadMetrics(c echo.Context, container *history.Container) (*store.Op, error) {
	tf := container.State().TimeFilter
	req := metricsRequest{From: tf.TimestampRangeStart, To: tf.TimestampRangeEnd}
	if hasBody(c) {
		if err := decodeJSON(c, &req); err != nil {
			return nil, err
		}
	}
	return container.LoadMetrics(req.From, req.To)
}
