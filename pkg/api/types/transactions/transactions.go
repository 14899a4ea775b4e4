package transactions

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/utils/rfctime"
	"github.com/google/uuid"
)

// Filter is the query of transactions.
//
// Field names are PascalCase on the wire, as the Transaction Event Service expects.
type Filter struct {
	TimestampRangeStart time.Time   `json:"TimestampRangeStart"`
	TimestampRangeEnd   time.Time   `json:"TimestampRangeEnd"`
	Risks               []Risk      `json:"Risks"`
	FileTypes           []FileType  `json:"FileTypes"`
	PolicyIds           []uuid.UUID `json:"PolicyIds,omitempty"`
}

var ErrInvalidFilter = errors.New("invalid transaction filter")

// Verify checks the filter describes a non-empty time range.
func (f Filter) Verify() error {
	if f.TimestampRangeStart.IsZero() || f.TimestampRangeEnd.IsZero() {
		return fmt.Errorf("%w: both of timestamp range start and end are required", ErrInvalidFilter)
	}
	if f.TimestampRangeEnd.Before(f.TimestampRangeStart) {
		return fmt.Errorf(
			"%w: timestamp range end (%s) is before start (%s)",
			ErrInvalidFilter, f.TimestampRangeEnd, f.TimestampRangeStart,
		)
	}
	return nil
}

func (f Filter) Equal(o Filter) bool {
	return f.TimestampRangeStart.Equal(o.TimestampRangeStart) &&
		f.TimestampRangeEnd.Equal(o.TimestampRangeEnd) &&
		slices.Equal(f.Risks, o.Risks) &&
		slices.Equal(f.FileTypes, o.FileTypes) &&
		slices.Equal(f.PolicyIds, o.PolicyIds)
}

type FileId struct {
	Value string `json:"value"`
}

// TransactionFile is one file-processing event.
type TransactionFile struct {
	Timestamp      rfctime.Time `json:"timestamp"`
	FileId         FileId       `json:"fileId"`
	FileType       FileType     `json:"fileType"`
	Risk           Risk         `json:"risk"`
	ActivePolicyId uuid.UUID    `json:"activePolicyId"`
	Directory      string       `json:"directory"`
}

type GetTransactionsResponse struct {
	Count int               `json:"count"`
	Files []TransactionFile `json:"files"`
}

// FileIds lists ids of files in the response, in order.
func (r GetTransactionsResponse) FileIds() []string {
	ids := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		ids = append(ids, f.FileId.Value)
	}
	return ids
}

// Find returns the file with the id, if any.
func (r GetTransactionsResponse) Find(fileId string) (TransactionFile, bool) {
	for _, f := range r.Files {
		if f.FileId.Value == fileId {
			return f, true
		}
	}
	return TransactionFile{}, false
}

func (r *GetTransactionsResponse) Clone() *GetTransactionsResponse {
	if r == nil {
		return nil
	}
	files := make([]TransactionFile, len(r.Files))
	copy(files, r.Files)
	return &GetTransactionsResponse{Count: r.Count, Files: files}
}

type GetTransactionDetailsResponse struct {
	Status         DetailsStatus `json:"status"`
	AnalysisReport string        `json:"analysisReport"`
}

type MetricsData struct {
	Date       rfctime.Time `json:"date"`
	Processed  int          `json:"processed"`
	SentToNcfs int          `json:"sentToNcfs"`
}

type GetMetricsResponse struct {
	TotalProcessed  int           `json:"totalProcessed"`
	TotalSentToNcfs int           `json:"totalSentToNcfs"`
	Data            []MetricsData `json:"data"`
}

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

func (d SortDirection) Flip() SortDirection {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// SortByTimestamp returns files sorted by their timestamps.
//
// The input is not modified. Files with equal timestamps keep their order.
func SortByTimestamp(files []TransactionFile, direction SortDirection) []TransactionFile {
	sorted := slices.Clone(files)
	slices.SortStableFunc(sorted, func(a, b TransactionFile) int {
		c := a.Timestamp.Time().Compare(b.Timestamp.Time())
		if direction == Descending {
			return -c
		}
		return c
	})
	return sorted
}
