package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigurationCloneIsDeep(t *testing.T) {
	orig := Configuration{
		ProductID:  "desk",
		Selections: map[string]string{"size": "large"},
		AddOns:     []string{"cable-tray"},
		Quantity:   2,
	}
	cp := orig.Clone()

	orig.Selections["size"] = "small"
	orig.AddOns[0] = "monitor-arm"
	orig.Quantity = 9

	require.Equal(t, "large", cp.Selections["size"])
	require.Equal(t, []string{"cable-tray"}, cp.AddOns)
	require.Equal(t, 2, cp.Quantity)
}

func TestDigest(t *testing.T) {
	a := Configuration{ProductID: "desk", Selections: map[string]string{"size": "large", "finish": "oak"}, AddOns: []string{"b", "a"}, Quantity: 1}
	b := Configuration{ProductID: "desk", Selections: map[string]string{"finish": "oak", "size": "large"}, AddOns: []string{"a", "b"}, Quantity: 1}
	c := a.Clone()
	c.Quantity = 2

	require.Len(t, Digest(a), 16)
	require.Equal(t, Digest(a), Digest(b), "map and add-on order must not change the digest")
	require.NotEqual(t, Digest(a), Digest(c))
	require.Equal(t, []string{"b", "a"}, a.AddOns, "digest must not reorder the caller's slice")
}

func TestCalculatorFunc(t *testing.T) {
	var calc Calculator = CalculatorFunc(func(_ context.Context, cfg Configuration, p Product) (Result, error) {
		return Result{FormattedTotal: p.ID + ":" + cfg.ProductID}, nil
	})
	res, err := calc.CalculatePrice(context.Background(), Configuration{ProductID: "x"}, Product{ID: "y"})
	require.NoError(t, err)
	require.Equal(t, "y:x", res.FormattedTotal)
}
