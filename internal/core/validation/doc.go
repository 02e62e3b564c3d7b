// Package validation provides pure validation functions for API handlers.
//
// All functions are pure (no I/O, no side effects). The Validate functions
// return the name of the offending field and a message, or two empty strings
// when the input is valid:
//
//	if field, msg := validation.ValidateDeployRequest(identity, root, projectsDir); field != "" {
//	    // Return 400 Bad Request with msg
//	}
package validation
