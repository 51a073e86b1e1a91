package pricingsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

func TestReplyFor(t *testing.T) {
	ok := replyFor(pricing.Result{FormattedTotal: "$1.00", RequestID: "r"}, nil)
	require.Empty(t, ok.Error)
	require.NotNil(t, ok.Breakdown)
	require.Equal(t, "$1.00", ok.FormattedTotal)

	classified := replyFor(pricing.Result{}, ferrors.ValidationError("unknown add-on").Build())
	require.Equal(t, "unknown add-on", classified.Error)
	require.Equal(t, string(ferrors.CategoryValidation), classified.Code)
	require.Nil(t, classified.Breakdown)

	plain := replyFor(pricing.Result{}, errors.New("boom"))
	require.Equal(t, "boom", plain.Error)
	require.Empty(t, plain.Code)
}
