package transactions_test

import (
	"errors"
	"testing"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/api/types/transactions"
	"github.com/glasswall/icap-management-ui/pkg/utils/cmp"
	"github.com/glasswall/icap-management-ui/pkg/utils/rfctime"
)

func TestFilter_Verify(t *testing.T) {
	base := time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)
	for name, testcase := range map[string]struct {
		when transactions.Filter
		then error
	}{
		"a range is valid": {
			when: transactions.Filter{TimestampRangeStart: base, TimestampRangeEnd: base.Add(time.Hour)},
			then: nil,
		},
		"an empty range is valid": {
			when: transactions.Filter{TimestampRangeStart: base, TimestampRangeEnd: base},
			then: nil,
		},
		"an inverted range is invalid": {
			when: transactions.Filter{TimestampRangeStart: base.Add(time.Hour), TimestampRangeEnd: base},
			then: transactions.ErrInvalidFilter,
		},
		"missing start is invalid": {
			when: transactions.Filter{TimestampRangeEnd: base},
			then: transactions.ErrInvalidFilter,
		},
		"missing end is invalid": {
			when: transactions.Filter{TimestampRangeStart: base},
			then: transactions.ErrInvalidFilter,
		},
	} {
		t.Run(name, func(t *testing.T) {
			if err := testcase.when.Verify(); !errors.Is(err, testcase.then) {
				t.Errorf("want %v, but got %v", testcase.then, err)
			}
		})
	}
}

func file(id string, ts time.Time) transactions.TransactionFile {
	return transactions.TransactionFile{
		FileId:    transactions.FileId{Value: id},
		Timestamp: rfctime.From(ts),
	}
}

func ids(files []transactions.TransactionFile) []string {
	return transactions.GetTransactionsResponse{Files: files}.FileIds()
}

func TestSortByTimestamp(t *testing.T) {
	base := time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)
	files := []transactions.TransactionFile{
		file("b", base.Add(2*time.Minute)),
		file("a", base.Add(1*time.Minute)),
		file("c", base.Add(3*time.Minute)),
		file("a2", base.Add(1*time.Minute)),
	}

	t.Run("ascending puts older first", func(t *testing.T) {
		got := transactions.SortByTimestamp(files, transactions.Ascending)
		want := []string{"a", "a2", "b", "c"}
		if !cmp.SliceEq(ids(got), want) {
			t.Errorf("want %v, but got %v", want, ids(got))
		}
	})

	t.Run("descending puts newer first", func(t *testing.T) {
		got := transactions.SortByTimestamp(files, transactions.Descending)
		want := []string{"c", "b", "a", "a2"}
		if !cmp.SliceEq(ids(got), want) {
			t.Errorf("want %v, but got %v", want, ids(got))
		}
	})

	t.Run("input is not modified", func(t *testing.T) {
		transactions.SortByTimestamp(files, transactions.Ascending)
		want := []string{"b", "a", "c", "a2"}
		if !cmp.SliceEq(ids(files), want) {
			t.Errorf("input is modified: %v", ids(files))
		}
	})
}

func TestSortDirection_Flip(t *testing.T) {
	if transactions.Ascending.Flip() != transactions.Descending {
		t.Error("asc should flip to desc")
	}
	if transactions.Descending.Flip() != transactions.Ascending {
		t.Error("desc should flip to asc")
	}
}

func TestGetTransactionsResponse_Find(t *testing.T) {
	resp := transactions.GetTransactionsResponse{
		Count: 2,
		Files: []transactions.TransactionFile{
			{FileId: transactions.FileId{Value: "x"}, Directory: "/x"},
			{FileId: transactions.FileId{Value: "y"}, Directory: "/y"},
		},
	}

	if f, ok := resp.Find("y"); !ok || f.Directory != "/y" {
		t.Errorf("unexpected: %+v, %v", f, ok)
	}
	if _, ok := resp.Find("z"); ok {
		t.Error("missing file is found")
	}
}

func TestEnumNames(t *testing.T) {
	if transactions.RiskBlockedByPolicy.String() != "Blocked By Policy" {
		t.Errorf("unexpected: %s", transactions.RiskBlockedByPolicy)
	}
	if transactions.FileTypeDocx.String() != "docx" {
		t.Errorf("unexpected: %s", transactions.FileTypeDocx)
	}
	if transactions.FileType(999).String() != "FileType(999)" {
		t.Errorf("unexpected: %s", transactions.FileType(999))
	}
}
