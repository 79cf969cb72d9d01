package openstack

const (
	statusDeleteComplete = "DELETE_COMPLETE"
	statusDeleteFailed   = "DELETE_FAILED"

	requestIDHeader = "X-Openstack-Request-Id"
)

// stableStatuses are the Heat stack states a delete can be issued from without
// racing an in-progress action.
var stableStatuses = []string{
	"CREATE_COMPLETE",
	"CREATE_FAILED",
	"UPDATE_COMPLETE",
	"UPDATE_FAILED",
	"ROLLBACK_COMPLETE",
	"ROLLBACK_FAILED",
	"RESUME_COMPLETE",
	"RESUME_FAILED",
	"SUSPEND_COMPLETE",
	"SUSPEND_FAILED",
	"CHECK_COMPLETE",
	"CHECK_FAILED",
	"ADOPT_COMPLETE",
	"SNAPSHOT_COMPLETE",
	statusDeleteFailed,
}

// heatFault is the JSON body Heat returns alongside an error status.
type heatFault struct {
	Explanation string `json:"explanation"`
	Title       string `json:"title"`
	Error       struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
