package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	cases := []struct {
		from   State
		passed bool
		want   State
	}{
		{Registering, true, LoggingIn},
		{Registering, false, Aborted},
		{LoggingIn, true, AddingProduct},
		{LoggingIn, false, Aborted},
		{AddingProduct, true, UpdatingQuantity},
		{AddingProduct, false, Aborted},
		{UpdatingQuantity, true, ListingProducts},
		{UpdatingQuantity, false, Aborted},
		{ListingProducts, true, Done},
		{ListingProducts, false, Done},
		{Done, false, Done},
		{Aborted, true, Aborted},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Next(tc.from, tc.passed), "%s passed=%v", tc.from, tc.passed)
	}
}

func TestChainCoversEveryStep(t *testing.T) {
	for s := Registering; s < Done; s++ {
		l, ok := linkFor(s)
		assert.True(t, ok, s.String())
		assert.NotEmpty(t, l.name)
		assert.NotNil(t, l.guard)
		assert.NotNil(t, l.step)
	}
	_, ok := linkFor(Done)
	assert.False(t, ok)
}

func TestAbortMessages(t *testing.T) {
	assert.Equal(t, "Registration test failed. Aborting further tests.", AbortMessage(Registering))
	assert.Equal(t, "Login failed. Skipping further tests.", AbortMessage(LoggingIn))
	assert.Equal(t, "Product creation failed. Skipping further tests.", AbortMessage(AddingProduct))
	assert.Equal(t, "Update quantity failed. Aborting further tests.", AbortMessage(UpdatingQuantity))
	assert.Empty(t, AbortMessage(ListingProducts))
	assert.Equal(t, "Get Products", StepName(ListingProducts))
}

func TestGuards(t *testing.T) {
	assert.NoError(t, requireNothing(&Session{}))
	assert.ErrorIs(t, requireToken(&Session{}), errNoToken)
	assert.NoError(t, requireToken(&Session{AccessToken: "t"}))
	assert.ErrorIs(t, requireTokenAndProduct(&Session{ProductID: "p"}), errNoToken)
	assert.ErrorIs(t, requireTokenAndProduct(&Session{AccessToken: "t"}), errNoProductID)
	assert.NoError(t, requireTokenAndProduct(&Session{AccessToken: "t", ProductID: "p"}))
}

func TestOutcomePassed(t *testing.T) {
	var nilOutcome *Outcome
	assert.False(t, nilOutcome.Passed())
	assert.False(t, (&Outcome{Final: Done}).Passed())

	o := &Outcome{Final: Done, Results: []StepResult{{Passed: true}, {Passed: false, Failure: FailureNotFound}}}
	assert.False(t, o.Passed())
	assert.Len(t, o.Failed(), 1)

	o.Results[1].Passed = true
	assert.True(t, o.Passed())
}

func TestFixtureProductFor(t *testing.T) {
	f := DefaultFixture()
	assert.Equal(t, "PHN-001", f.productFor("0123456789").SKU)

	f.UniqueSKU = true
	assert.Equal(t, "PHN-001-01234567", f.productFor("0123456789").SKU)
	assert.Equal(t, "PHN-001-ab", f.productFor("ab").SKU)
	assert.Equal(t, "PHN-001", f.Product.SKU)
}
