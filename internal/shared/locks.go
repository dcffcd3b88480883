package shared

import "fmt"

// SubmitLockKey builds the redis key guarding writes to one record of a
// screen. Creates share the "new" slot per session.
func SubmitLockKey(sessionID, screen, id string) string {
	if id == "" {
		id = "new"
	}
	return fmt.Sprintf("submit:%s:%s:%s:lock", sessionID, screen, id)
}
