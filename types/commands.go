package types

// CommandType tags a Command.
type CommandType string

const (
	CommandUploadFile CommandType = "uploadFile"
	CommandUploadAll  CommandType = "uploadAll"
	CommandCancel     CommandType = "cancel"
	CommandCancelAll  CommandType = "cancelAll"
	CommandRemove     CommandType = "remove"
	CommandRemoveAll  CommandType = "removeAll"
)

// Command is one imperative instruction for the dispatcher. ID selects the
// target entry for per-file commands; uploadFile alternatively accepts
// FileIndex (current registry position). URL and Method apply to uploadFile
// and uploadAll (method defaults to POST when empty).
type Command struct {
	Type      CommandType `json:"type"`
	ID        string      `json:"id,omitempty"`
	FileIndex *int        `json:"fileIndex,omitempty"`
	URL       string      `json:"url,omitempty"`
	Method    string      `json:"method,omitempty"`
}
