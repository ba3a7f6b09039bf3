// Package params resolves free-form key/value parameters.
//
// Parameters come from the params section of dbobj.yaml, from --params-file
// files in .env format, and from repeated --param key=value flags, in
// increasing order of precedence. They are substituted into endpoint
// definitions wherever a ${name} placeholder appears, so dbobj.yaml can be
// shared between environments:
//
//	environments:
//	  staging:
//	    endpoints:
//	      primary:
//	        host: ${PRIMARY_HOST}
//
// Undefined placeholders fall back to the process environment and then
// resolve to an error rather than an empty string.
package params
