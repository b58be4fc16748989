package scenario

import (
	"context"
	"errors"
)

var (
	errNoToken     = errors.New("access token from login is missing")
	errNoProductID = errors.New("product id from add product is missing")
)

// link is one position of the chain: the guard checks the step's
// precondition values before the step is allowed to run.
type link struct {
	state State
	name  string
	guard func(*Session) error
	step  func(*run, context.Context, link) StepResult
	// abortMessage is printed when this step ends the run early.
	abortMessage string
}

var chain = []link{
	{
		state:        Registering,
		name:         "User Registration",
		guard:        requireNothing,
		step:         (*run).register,
		abortMessage: "Registration test failed. Aborting further tests.",
	},
	{
		state:        LoggingIn,
		name:         "Login Test",
		guard:        requireNothing,
		step:         (*run).login,
		abortMessage: "Login failed. Skipping further tests.",
	},
	{
		state:        AddingProduct,
		name:         "Add Product",
		guard:        requireToken,
		step:         (*run).addProduct,
		abortMessage: "Product creation failed. Skipping further tests.",
	},
	{
		state:        UpdatingQuantity,
		name:         "Update Quantity",
		guard:        requireTokenAndProduct,
		step:         (*run).updateQuantity,
		abortMessage: "Update quantity failed. Aborting further tests.",
	},
	{
		state: ListingProducts,
		name:  "Get Products",
		guard: requireTokenAndProduct,
		step:  (*run).listProducts,
	},
}

func linkFor(s State) (link, bool) {
	for _, l := range chain {
		if l.state == s {
			return l, true
		}
	}
	return link{}, false
}

// StepName returns the printed name of the step run in state s.
func StepName(s State) string {
	l, _ := linkFor(s)
	return l.name
}

// AbortMessage returns the line printed when the step run in state s aborts the run.
func AbortMessage(s State) string {
	l, _ := linkFor(s)
	return l.abortMessage
}

// Next returns the state following s after its step finished.
// A failed listing still ends in Done; it is the last step and nothing depends on it.
func Next(s State, passed bool) State {
	switch {
	case s.Terminal():
		return s
	case s == ListingProducts:
		return Done
	case !passed:
		return Aborted
	default:
		return s + 1
	}
}

func requireNothing(*Session) error { return nil }

func requireToken(s *Session) error {
	if s.AccessToken == "" {
		return errNoToken
	}
	return nil
}

func requireTokenAndProduct(s *Session) error {
	if err := requireToken(s); err != nil {
		return err
	}
	if s.ProductID == "" {
		return errNoProductID
	}
	return nil
}
