package rbac

type Role string
type Action string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
)

const (
	ActionSubmitRequest Action = "submit-request"
	ActionViewAll       Action = "view-all"
	ActionSchedule      Action = "schedule"
	ActionRecordPayment Action = "record-payment"
	ActionMessage       Action = "message"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleLandlord:
		return action == ActionViewAll || action == ActionSchedule ||
			action == ActionRecordPayment || action == ActionMessage
	case RoleTenant:
		return action == ActionSubmitRequest || action == ActionMessage
	default:
		return false
	}
}

// Normalize maps unknown role strings to the least-privileged role.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleTenant, RoleLandlord:
		return Role(role)
	default:
		return RoleTenant
	}
}
