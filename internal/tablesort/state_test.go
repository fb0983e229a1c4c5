package tablesort

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestOrder_NextCycles(t *testing.T) {
	assert.Equal(t, Ascending, None.Next())
	assert.Equal(t, Descending, Ascending.Next())
	assert.Equal(t, None, Descending.Next())
}

func TestState_ToggleCyclesOneColumn(t *testing.T) {
	s := State{}

	s = s.Toggle("batch")
	assert.Equal(t, Ascending, s.Order("batch"))
	s = s.Toggle("batch")
	assert.Equal(t, Descending, s.Order("batch"))
	s = s.Toggle("batch")
	assert.Equal(t, None, s.Order("batch"))
	assert.Len(t, s, 1, "a column cycled back to none keeps its slot")
	assert.False(t, s.Active())

	s = s.Toggle("batch")
	assert.Equal(t, Ascending, s.Order("batch"))
}

func TestState_ToggleLeavesOtherColumnsAlone(t *testing.T) {
	s := State{}.Toggle("batch").Toggle("quantity").Toggle("quantity")

	want := State{{Key: "batch", Order: Ascending}, {Key: "quantity", Order: Descending}}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestState_ToggleDoesNotAlias(t *testing.T) {
	base := State{{Key: "batch", Order: Ascending}}
	next := base.Toggle("batch")

	assert.Equal(t, Ascending, base.Order("batch"))
	assert.Equal(t, Descending, next.Order("batch"))
}

func TestState_OrderOfUnknownKey(t *testing.T) {
	assert.Equal(t, None, State{}.Order("nope"))
	assert.Equal(t, None, State(nil).Order("nope"))
}

func TestState_EncodeParseRoundTrip(t *testing.T) {
	s := State{
		{Key: "expiry_date", Order: Descending},
		{Key: "batch", Order: None},
		{Key: "quantity", Order: Ascending},
	}

	raw := s.Encode()
	assert.Equal(t, "expiry_date.2,batch.0,quantity.1", raw)
	if diff := cmp.Diff(s, ParseState(raw)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseState_Lenient(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want State
	}{
		{"empty", "", State{}},
		{"missing order", "batch", State{}},
		{"trailing dot", "batch.", State{}},
		{"out of range", "batch.3,quantity.-1", State{}},
		{"not a number", "batch.x", State{}},
		{"duplicate keeps first", "batch.1,batch.2", State{{Key: "batch", Order: Ascending}}},
		{"dotted key", "item.name.2", State{{Key: "item.name", Order: Descending}}},
		{"skips bad tokens", "batch.1,,oops,quantity.2", State{{Key: "batch", Order: Ascending}, {Key: "quantity", Order: Descending}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseState(tt.raw)
			assert.NotNil(t, got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseState(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestOrder_Arrow(t *testing.T) {
	assert.Equal(t, "", None.Arrow())
	assert.Equal(t, "↑", Ascending.Arrow())
	assert.Equal(t, "↓", Descending.Arrow())
}
