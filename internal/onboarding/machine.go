// Package onboarding sequences wallet authentication, identity
// verification, and fitness-account linking for a wallet address. The
// machine is explicit: an enumerated state, a pure transition function,
// and a derivation function that recomputes the state from persisted
// flags alone, so no step carries hidden memory.
package onboarding

import "github.com/pace-club/internal/models"

// State is one step of the onboarding sequence
type State string

const (
	// StateUnauthenticated means no wallet address is known
	StateUnauthenticated State = "unauthenticated"
	// StateAwaitingWalletAuth means a login prompt is pending
	StateAwaitingWalletAuth State = "awaiting_wallet_auth"
	// StateAwaitingVerification means the wallet is known but unverified
	StateAwaitingVerification State = "awaiting_verification"
	// StateAwaitingFitnessLink means verification is done, no account linked
	StateAwaitingFitnessLink State = "awaiting_fitness_link"
	// StateComplete means every step has finished
	StateComplete State = "complete"
)

// Event is an input to the transition function
type Event string

const (
	// EventWalletConnected fires when the auth collaborator reports an address
	EventWalletConnected Event = "wallet_connected"
	// EventWalletDisconnected fires on logout or loss of the address
	EventWalletDisconnected Event = "wallet_disconnected"
	// EventVerificationSucceeded fires on the verification success callback
	EventVerificationSucceeded Event = "verification_succeeded"
	// EventVerificationFailed fires on the verification error callback
	EventVerificationFailed Event = "verification_failed"
	// EventFitnessLinked fires when the OAuth exchange persists an account
	EventFitnessLinked Event = "fitness_linked"
	// EventFitnessLinkFailed fires when the exchange fails
	EventFitnessLinkFailed Event = "fitness_link_failed"
	// EventReset fires on an explicit local data wipe
	EventReset Event = "reset"
)

// Transition is the pure transition function. Unknown or out-of-order
// events leave the state unchanged: failures keep the machine in place for
// retry, and re-running a completed step is a no-op.
func Transition(state State, event Event) State {
	switch event {
	case EventWalletDisconnected:
		return StateAwaitingWalletAuth
	case EventReset:
		return StateUnauthenticated
	}

	switch state {
	case StateUnauthenticated, StateAwaitingWalletAuth:
		if event == EventWalletConnected {
			return StateAwaitingVerification
		}
	case StateAwaitingVerification:
		if event == EventVerificationSucceeded {
			return StateAwaitingFitnessLink
		}
	case StateAwaitingFitnessLink:
		if event == EventFitnessLinked {
			return StateComplete
		}
	case StateComplete:
		// Terminal until disconnect or reset
	}

	return state
}

// DeriveState recomputes the state purely from the persisted record.
// A nil identity means no wallet address is known.
func DeriveState(identity *models.Identity) State {
	switch {
	case identity == nil || identity.WalletAddress == "":
		return StateAwaitingWalletAuth
	case !identity.Verified:
		return StateAwaitingVerification
	case !identity.Linked():
		return StateAwaitingFitnessLink
	default:
		return StateComplete
	}
}
