package dbobj

import "context"

// Approver confirms destructive replication changes, such as removing tables
// from a publication.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts the user to type the publication name
type Approver interface {
	// RequestApproval asks for confirmation before changes listed in details
	// are applied to subject. It returns false when the user declines.
	RequestApproval(ctx context.Context, subject string, details []string) (bool, error)
}
