package gitrepo

import (
	"fmt"
	"strings"
)

const (
	httpsProtocolPrefixConstant      = "https://"
	gitUserPrefixConstant            = "git@"
	sshProtocolPrefixConstant        = "ssh://"
	sshPathDelimiterConstant         = ":"
	pathSeparatorConstant            = "/"
	gitSuffixConstant                = ".git"
	remoteURLTemplateConstant        = "%s/%s"
	invalidRemoteURLTemplateConstant = "invalid remote url %q"
)

// GitURLPrefix reduces a repository remote URL to the prefix shared by its
// sibling repositories, normalizing ssh spellings to https. The prefix is the
// URL up to the terminal path component.
func GitURLPrefix(remoteURL string) (string, error) {
	normalizedURL := strings.TrimSuffix(strings.TrimSpace(remoteURL), gitSuffixConstant)
	normalizedURL = strings.TrimPrefix(normalizedURL, sshProtocolPrefixConstant)
	if strings.HasPrefix(normalizedURL, gitUserPrefixConstant) {
		hostAndPath := strings.TrimPrefix(normalizedURL, gitUserPrefixConstant)
		hostAndPath   = strings.Replace(hostAndPath, sshPathDelimiterConstant, pathSeparatorConstant, 1)
		normalizedURL = httpsProtocolPrefixConstant + hostAndPath
	}

	lastSeparatorIndex := strings.LastIndex(normalizedURL, pathSeparatorConstant)
	if !strings.HasPrefix(normalizedURL, httpsProtocolPrefixConstant) || lastSeparatorIndex <= len(httpsProtocolPrefixConstant) {
		return "", fmt.Errorf(invalidRemoteURLTemplateConstant, remoteURL)
	}
	return normalizedURL[:lastSeparatorIndex], nil
}

// ComposeRemoteURL joins a git URL prefix with a repository name.
func ComposeRemoteURL(gitPrefix string, repositoryName string) string {
	return fmt.Sprintf(remoteURLTemplateConstant, strings.TrimSuffix(gitPrefix, pathSeparatorConstant), repositoryName)
}
