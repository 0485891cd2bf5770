package intent

const (
	StepSubmitted          = "INTENT_SUBMITTED"
	StepDepositsConfirmed  = "INTENT_DEPOSITS_CONFIRMED"
	StepCollectionComplete = "INTENT_COLLECTION_COMPLETE"
	StepFulfilled          = "INTENT_FULFILLED"
)

// Steps lists the progress steps of an intent in order
var Steps = []string{StepSubmitted, StepDepositsConfirmed, StepCollectionComplete, StepFulfilled}

// StepText describes a progress step, in progress or done
func StepText(status string, done bool) string {
	switch status {
	case StepSubmitted:
		if done {
			return "Intent Verified"
		}
		return "Verifying Intent"
	case StepDepositsConfirmed:
		if done {
			return "Deposited on Source Chains"
		}
		return "Depositing on Source Chains"
	case StepCollectionComplete:
		if done {
			return "Collected on Source Chains"
		}
		return "Collecting on Source Chains"
	case StepFulfilled:
		if done {
			return "Intent Fulfilled"
		}
		return "Fulfilling Intent"
	default:
		return "Unknown status. Please contact support."
	}
}
