package gitrepo

import "fmt"

const repositoryUnavailableTemplateConstant = "repository %s (branch %s) unavailable: %v"

// RepositoryUnavailableError reports a repository that could not be reached
// over the network or refused authentication.
type RepositoryUnavailableError struct {
	RemoteURL string
	Branch    string
	Cause     error
}

// Error describes the unavailable repository.
func (unavailable RepositoryUnavailableError) Error() string {
	return fmt.Sprintf(repositoryUnavailableTemplateConstant, unavailable.RemoteURL, unavailable.Branch, unavailable.Cause)
}

// Unwrap exposes the underlying cause.
func (unavailable RepositoryUnavailableError) Unwrap() error {
	return unavailable.Cause
}
