package account

// Step indexes the signup wizard.
type Step int

const (
	StepPersonalDetails Step = iota
	StepShippingAddress
)

// Steps lists the wizard steps in order.
var Steps = []Step{StepPersonalDetails, StepShippingAddress}

var stepFields = map[Step][]Field{
	StepPersonalDetails: {
		FieldEmail,
		FieldFirstName,
		FieldLastName,
		FieldPassword,
		FieldConfirmPassword,
	},
	StepShippingAddress: {
		FieldAddressFirstName,
		FieldAddressLastName,
		FieldAddressTelephone,
		FieldAddressCountry,
		FieldAddressCity,
		FieldAddressStreet,
		FieldAddressPostcode,
	},
}

// LastStep is the index of the final wizard step.
const LastStep = StepShippingAddress

func (s Step) String() string {
	switch s {
	case StepPersonalDetails:
		return "personal_details"
	case StepShippingAddress:
		return "shipping_address"
	default:
		return "unknown"
	}
}

// Fields returns the draft keys that must be valid to leave step s.
func (s Step) Fields() []Field {
	return append([]Field(nil), stepFields[s]...)
}

// clampStep keeps s within the wizard bounds.
func clampStep(s Step) Step {
	if s < StepPersonalDetails {
		return StepPersonalDetails
	}
	if s > LastStep {
		return LastStep
	}
	return s
}
