// Package history holds the state of the transaction history view.
package history

import (
	"slices"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/api/types/transactions"
)

// FilterRisk is the kind of filter chips selecting risks.
// Chips of any other kind select file types.
const FilterRisk = "Risk"

// FilterChip is a filter selected in the view.
type FilterChip struct {
	Id       string                `json:"id"`
	Title    string                `json:"title"`
	Filter   string                `json:"filter"`
	Risk     transactions.Risk     `json:"riskEnum"`
	FileType transactions.FileType `json:"fileTypeEnum"`
}

type TimeFilter struct {
	TimestampRangeStart time.Time `json:"timestampRangeStart"`
	TimestampRangeEnd   time.Time `json:"timestampRangeEnd"`
}

// DefaultWindow is the length of the default time filter.
const DefaultWindow = 24 * time.Hour

// Last is the time filter of the window until now.
func Last(now time.Time, window time.Duration) TimeFilter {
	return TimeFilter{
		TimestampRangeStart: now.Add(-window),
		TimestampRangeEnd:   now,
	}
}

type State struct {
	SelectedFilters []FilterChip                          `json:"selectedFilters"`
	TimeFilter      TimeFilter                            `json:"timeFilter"`
	SortDirection   transactions.SortDirection            `json:"sortDirection"`
	Transactions    *transactions.GetTransactionsResponse `json:"transactions"`
	IsLoading       bool                                  `json:"isLoading"`
	IsError         bool                                  `json:"isError"`
	Error           string                                `json:"error,omitempty"`

	SelectedFile     *transactions.TransactionFile `json:"selectedFile"`
	FileDetails      string                        `json:"fileDetails"`
	DetailsStatus    transactions.DetailsStatus    `json:"detailsStatus"`
	IsDetailsLoading bool                          `json:"isDetailsLoading"`

	Metrics          *transactions.GetMetricsResponse `json:"metrics"`
	IsMetricsLoading bool                             `json:"isMetricsLoading"`
	MetricsError     string                           `json:"metricsError,omitempty"`
}

// Initial is the state before transactions are fetched.
func Initial(tf TimeFilter) State {
	return State{
		SelectedFilters: []FilterChip{},
		TimeFilter:      tf,
		SortDirection:   transactions.Descending,
		IsLoading:       true,
	}
}

// Filter is the query of transactions for the state.
func (s State) Filter() transactions.Filter {
	f := transactions.Filter{
		TimestampRangeStart: s.TimeFilter.TimestampRangeStart,
		TimestampRangeEnd:   s.TimeFilter.TimestampRangeEnd,
		Risks:               []transactions.Risk{},
		FileTypes:           []transactions.FileType{},
	}
	for _, chip := range s.SelectedFilters {
		if chip.Filter == FilterRisk {
			f.Risks = append(f.Risks, chip.Risk)
		} else {
			f.FileTypes = append(f.FileTypes, chip.FileType)
		}
	}
	return f
}

// Empty tells transactions are loaded, and there are none.
func (s State) Empty() bool {
	return !s.IsLoading && !s.IsError && s.Transactions != nil && s.Transactions.Count == 0
}

func (s State) clone() State {
	c := s
	c.SelectedFilters = slices.Clone(s.SelectedFilters)
	c.Transactions = s.Transactions.Clone()
	if s.SelectedFile != nil {
		f := *s.SelectedFile
		c.SelectedFile = &f
	}
	if s.Metrics != nil {
		m := *s.Metrics
		m.Data = slices.Clone(s.Metrics.Data)
		c.Metrics = &m
	}
	return c
}

// Action changes a copy of state, and returns it.
type Action func(State) State

// Reduce applies a to a copy of s. s is not modified.
func Reduce(s State, a Action) State {
	return a(s.clone())
}

func setFilters(chips []FilterChip) Action {
	chips = slices.Clone(chips)
	return func(s State) State {
		s.SelectedFilters = chips
		return s
	}
}

func setTimeFilter(tf TimeFilter) Action {
	return func(s State) State {
		s.TimeFilter = tf
		return s
	}
}

func startLoading(s State) State {
	s.IsLoading = true
	s.IsError = false
	s.Error = ""
	return s
}

func setTransactions(resp transactions.GetTransactionsResponse) Action {
	return func(s State) State {
		s.Transactions = &transactions.GetTransactionsResponse{
			Count: resp.Count,
			Files: transactions.SortByTimestamp(resp.Files, s.SortDirection),
		}
		s.IsLoading = false
		s.IsError = false
		s.Error = ""
		return s
	}
}

func setTransactionsError(message string) Action {
	return func(s State) State {
		s.IsLoading = false
		s.IsError = true
		s.Error = message
		return s
	}
}

func toggleTimestampSort(s State) State {
	s.SortDirection = s.SortDirection.Flip()
	if s.Transactions != nil {
		s.Transactions.Files = transactions.SortByTimestamp(s.Transactions.Files, s.SortDirection)
	}
	return s
}

func selectFile(file transactions.TransactionFile) Action {
	return func(s State) State {
		s.SelectedFile = &file
		s.FileDetails = ""
		s.DetailsStatus = transactions.DetailsUnknown
		s.IsDetailsLoading = true
		return s
	}
}

// setDetails stores the analysis report, if the file is still selected.
func setDetails(fileId string, details transactions.GetTransactionDetailsResponse) Action {
	return func(s State) State {
		if s.SelectedFile == nil || s.SelectedFile.FileId.Value != fileId {
			return s
		}
		s.FileDetails = details.AnalysisReport
		s.DetailsStatus = details.Status
		s.IsDetailsLoading = false
		return s
	}
}

func closeFile(s State) State {
	s.SelectedFile = nil
	s.FileDetails = ""
	s.DetailsStatus = transactions.DetailsUnknown
	s.IsDetailsLoading = false
	return s
}

func startLoadingMetrics(s State) State {
	s.IsMetricsLoading = true
	s.MetricsError = ""
	return s
}

func setMetrics(m transactions.GetMetricsResponse) Action {
	m.Data = slices.Clone(m.Data)
	return func(s State) State {
		s.Metrics = &m
		s.IsMetricsLoading = false
		s.MetricsError = ""
		return s
	}
}

func setMetricsError(message string) Action {
	return func(s State) State {
		s.IsMetricsLoading = false
		s.MetricsError = message
		return s
	}
}
