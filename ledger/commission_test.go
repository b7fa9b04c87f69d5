package ledger_test

import (
	"testing"

	"github.com/mrbanana/bunch-ledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommission_Apply(t *testing.T) {
	// GIVEN: 5 bunches sold for 500 at 20 per bunch
	line := ledger.DefaultCommission().Apply(sale(1, 1, "alice", 5, 500))

	// THEN: commission 100, net 400
	assertAmount(t, 100, line.Commission, "commission")
	assertAmount(t, 400, line.Net, "net")
}

func TestCommission_NegativeInputsCountAsZero(t *testing.T) {
	s := sale(1, 1, "alice", -3, -50)
	line := ledger.DefaultCommission().Apply(s)

	assertAmount(t, 0, line.Commission, "commission")
	assertAmount(t, 0, line.Net, "net")
}

func TestCommission_CustomRate(t *testing.T) {
	c := ledger.NewCommission(ledger.ParseAmount("12.5"))
	line := c.Apply(sale(1, 1, "alice", 4, 100))

	assertAmount(t, 50, line.Commission, "commission")
	assertAmount(t, 50, line.Net, "net")
}

func TestCommission_NetSumIdentity(t *testing.T) {
	// sum(net) == sum(total) - rate * sum(bunches)
	sales := []ledger.Sale{
		sale(1, 1, "alice", 5, 500),
		sale(2, 2, "bob", 0, 80),
		sale(3, 3, "alice", 12, 150),
		sale(4, 3, "carol", 7, 0),
	}
	c := ledger.DefaultCommission()

	netSum := ledger.ZeroAmount()
	totalSum := ledger.ZeroAmount()
	var bunches int64
	for _, s := range sales {
		netSum = netSum.Add(c.Apply(s).Net)
		totalSum = totalSum.Add(s.Total)
		bunches += s.Bunches
	}

	assert.True(t, netSum.Equal(totalSum.Sub(c.PerBunch.MulInt(bunches))))
}

func TestCommission_LinesNewestFirst(t *testing.T) {
	lines := ledger.DefaultCommission().Lines([]ledger.Sale{
		sale(1, 1, "alice", 1, 100),
		sale(2, 2, "bob", 1, 100),
		sale(3, 3, "alice", 1, 100),
	})

	require.Len(t, lines, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{lines[0].Seq, lines[1].Seq, lines[2].Seq})
}

func TestAggregate(t *testing.T) {
	totals := ledger.Aggregate([]ledger.Sale{
		sale(1, 1, "alice", 5, 500),
		sale(2, 2, "bob", 2, 100),
		sale(3, 3, "alice", 1, 60),
	}, ledger.DefaultCommission())

	assertAmount(t, 440, totals.Get("alice"), "alice")
	assertAmount(t, 60, totals.Get("bob"), "bob")
	assert.Equal(t, []string{"alice", "bob"}, totals.Customers())
	assert.False(t, totals.Has("carol"))
}

func TestAggregate_Empty(t *testing.T) {
	totals := ledger.Aggregate(nil, ledger.DefaultCommission())
	assert.NotNil(t, totals)
	assert.Empty(t, totals)
}
