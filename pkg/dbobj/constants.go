package dbobj

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess           = 0  // Command completed without findings
	ExitGeneralError      = 1  // Unknown or unclassified error
	ExitUsageError        = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic             = 3  // Internal panic (unexpected crash)
	ExitConfigError       = 10 // Invalid configuration or parameters
	ExitConnectionError   = 11 // Failed to reach a database endpoint
	ExitApprovalDenied    = 12 // User denied a destructive replication change
	ExitParseError        = 20 // Object definition or tag could not be parsed
	ExitDiscrepancy       = 21 // Manifest, naming or reference check found problems
	ExitReplicationConfig = 22 // Replication route is invalid or could not be applied
)

const (
	// DefaultForceApprovalCountdown is the countdown shown before a forced approval proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the initial delay before retrying a conflicting transaction.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay caps the delay between transaction retries.
	DefaultRetryMaxDelay = 5 * time.Second

	// DefaultRetryMaxAttempts is the number of retries after a transaction conflict.
	DefaultRetryMaxAttempts = 3

	// DefaultReplicationTimeout bounds a single replication command.
	DefaultReplicationTimeout = 2 * time.Minute

	// DefaultManagementDB is the database used when an endpoint names none.
	DefaultManagementDB = "postgres"

	// ConfigFileName is the project configuration file at the object root.
	ConfigFileName = "dbobj.yaml"

	// ManifestFileName is the file written inside each version directory.
	ManifestFileName = "manifest.yaml"

	// Directory names below an application root.
	TablesDir      = "tables"
	FunctionsDir   = "functions"
	VersionsDir    = "versions"
	DescriptorsDir = "descriptors"

	// SQLExtension is the extension of every object definition file.
	SQLExtension = ".sql"
)
