package rbac

const (
	PermQuizCreate     = "quiz:create"
	PermQuizView       = "quiz:view"
	PermQuizViewKey    = "quiz:view-key"
	PermAttemptCreate  = "attempt:create"
	PermAttemptSave    = "attempt:save"
	PermAttemptSubmit  = "attempt:submit"
	PermAttemptViewOwn = "attempt:view-own"
	PermAttemptViewAll = "attempt:view-all"
	PermStatisticsView = "stats:view"
)

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizView,
		PermAttemptCreate,
		PermAttemptSave,
		PermAttemptSubmit,
		PermAttemptViewOwn,
	},
	"teacher": {
		"quiz:*",
		PermAttemptViewAll,
		PermStatisticsView,
	},
	"admin": {
		"*", // everything
	},
}
