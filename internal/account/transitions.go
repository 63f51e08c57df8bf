package account

// userTransitions lists the view changes a customer can request directly.
// ValidateSignUp and LoggedIn are only reached through Submit, Observe, Retry
// and Logout.
var userTransitions = map[View][]View{
	ViewSignIn: {
		ViewForgotPassword,
		ViewCreateAccount,
	},
	ViewForgotPassword: {
		ViewSignIn,
		ViewCreateAccount,
	},
	ViewCreateAccount: {
		ViewSignIn,
	},
}

// IsTransitionAllowed reports whether a customer may switch from one view to another.
func IsTransitionAllowed(from, to View) bool {
	allowed, ok := userTransitions[from]
	if !ok {
		return false
	}

	for _, view := range allowed {
		if view == to {
			return true
		}
	}

	return false
}
