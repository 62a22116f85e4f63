package errs

// Domain taxonomy. Msg is the wire code sent in the error event; Detail is
// the default human text, replaceable per call site via WithDetail/WrapMsg.
var (
	ErrRoomInvalid      = New(40401, "ROOM_INVALID", "Invalid room.")
	ErrRoomAccessDenied = New(40301, "ROOM_ACCESS_DENIED", "You do not have permission to join this room.")
	ErrAuthRequired     = New(40101, "AUTH_REQUIRED", "You must be authenticated to do that.")
	ErrValidation       = New(42201, "VALIDATION_ERROR", "Invalid input.")
	ErrNotFound         = New(40402, "NOT_FOUND", "Something went wrong. Try refreshing the browser.")
	ErrUnknown          = New(50001, "UNKNOWN_ERROR", "An unknown error occurred.")
)
