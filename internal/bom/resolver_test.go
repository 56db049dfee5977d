package bom_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spinnaker/buildtool/internal/bom"
	"github.com/spinnaker/buildtool/internal/gitrepo"
	"github.com/spinnaker/buildtool/internal/semver"
)

const (
	testRepositoryNameConstant       = "rosco"
	testHeadCommitConstant           = "1111111111111111111111111111111111111111"
	testTaggedCommitConstant         = "2222222222222222222222222222222222222222"
	testOlderTaggedCommitConstant    = "3333333333333333333333333333333333333333"
	testExactTagCaseNameConstant     = "exact_tag_at_head"
	testGreatestTagCaseNameConstant  = "greatest_tag_wins_at_head"
	testMasterAheadCaseNameConstant  = "master_head_ahead_bumps_minor"
	testReleaseAheadCaseNameConstant = "release_head_ahead_bumps_patch"
	testNoTagCaseNameConstant        = "no_semver_tag_fails"
	testOffLineTagsCaseNameConstant  = "release_branch_ignores_other_lines"
	testNonSemverIgnoredCaseConstant = "non_semver_tags_ignored"
)

type fakeRepositoryView struct {
	headCommit string
	headError  error
	tags       []gitrepo.TagReference
	tagsError  error
}

func (view *fakeRepositoryView) HeadCommit(context.Context) (string, error) {
	return view.headCommit, view.headError
}

func (view *fakeRepositoryView) ReachableTags(context.Context) ([]gitrepo.TagReference, error) {
	return view.tags, view.tagsError
}

func TestTagResolverResolve(testInstance *testing.T) {
	testCases := []struct {
		name               string
		branchName         string
		view               *fakeRepositoryView
		expectedResolution bom.Resolution
		expectWarning      bool
		expectedError      error
	}{
		{
			name:       testExactTagCaseNameConstant,
			branchName: "master",
			view: &fakeRepositoryView{
				headCommit: testHeadCommitConstant,
				tags: []gitrepo.TagReference{
					{Name: "v1.7.2", Commit: testHeadCommitConstant},
					{Name: "v1.7.1", Commit: testTaggedCommitConstant},
				},
			},
			expectedResolution: bom.Resolution{Commit: testHeadCommitConstant, Version: semver.Version{Major: 1, Minor: 7, Patch: 2}},
		},
		{
			name:       testGreatestTagCaseNameConstant,
			branchName: "master",
			view: &fakeRepositoryView{
				headCommit: testHeadCommitConstant,
				tags: []gitrepo.TagReference{
					{Name: "v1.7.2", Commit: testHeadCommitConstant},
					{Name: "v1.10.0", Commit: testHeadCommitConstant},
					{Name: "v1.9.9", Commit: testHeadCommitConstant},
				},
			},
			expectedResolution: bom.Resolution{Commit: testHeadCommitConstant, Version: semver.Version{Major: 1, Minor: 10, Patch: 0}},
		},
		{
			name:       testMasterAheadCaseNameConstant,
			branchName: "master",
			view: &fakeRepositoryView{
				headCommit: testHeadCommitConstant,
				tags: []gitrepo.TagReference{
					{Name: "v1.7.2", Commit: testTaggedCommitConstant},
					{Name: "v1.6.0", Commit: testOlderTaggedCommitConstant},
				},
			},
			expectedResolution: bom.Resolution{Commit: testHeadCommitConstant, Version: semver.Version{Major: 1, Minor: 8, Patch: 0}},
			expectWarning:      true,
		},
		{
			name:       testReleaseAheadCaseNameConstant,
			branchName: "release-1.7.x",
			view: &fakeRepositoryView{
				headCommit: testHeadCommitConstant,
				tags: []gitrepo.TagReference{
					{Name: "v1.7.2", Commit: testTaggedCommitConstant},
					{Name: "v1.8.0", Commit: testOlderTaggedCommitConstant},
				},
			},
			expectedResolution: bom.Resolution{Commit: testHeadCommitConstant, Version: semver.Version{Major: 1, Minor: 7, Patch: 3}},
			expectWarning:      true,
		},
		{
			name:       testNoTagCaseNameConstant,
			branchName: "master",
			view: &fakeRepositoryView{
				headCommit: testHeadCommitConstant,
				tags:       []gitrepo.TagReference{},
			},
			expectedError: bom.ErrNoTagFound,
		},
		{
			name:       testOffLineTagsCaseNameConstant,
			branchName: "release-2.0.x",
			view: &fakeRepositoryView{
				headCommit: testHeadCommitConstant,
				tags: []gitrepo.TagReference{
					{Name: "v1.7.2", Commit: testTaggedCommitConstant},
				},
			},
			expectedError: bom.ErrNoTagFound,
		},
		{
			name:       testNonSemverIgnoredCaseConstant,
			branchName: "master",
			view: &fakeRepositoryView{
				headCommit: testHeadCommitConstant,
				tags: []gitrepo.TagReference{
					{Name: "nightly-build", Commit: testHeadCommitConstant},
					{Name: "v1.7.2", Commit: testTaggedCommitConstant},
				},
			},
			expectedResolution: bom.Resolution{Commit: testHeadCommitConstant, Version: semver.Version{Major: 1, Minor: 8, Patch: 0}},
			expectWarning:      true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			resolver := bom.TagResolver{}
			branchPolicy := semver.ResolveBranchPolicy(testCase.branchName)

			resolution, resolutionError := resolver.Resolve(context.Background(), testRepositoryNameConstant, testCase.view, branchPolicy)
			if testCase.expectedError != nil {
				require.Error(testInstance, resolutionError)
				require.ErrorIs(testInstance, resolutionError, testCase.expectedError)
				return
			}

			require.NoError(testInstance, resolutionError)
			require.Equal(testInstance, testCase.expectedResolution.Commit, resolution.Commit)
			require.Equal(testInstance, testCase.expectedResolution.Version, resolution.Version)
			if testCase.expectWarning {
				require.NotNil(testInstance, resolution.Warning)
				require.Equal(testInstance, testRepositoryNameConstant, resolution.Warning.RepositoryName)
				require.Equal(testInstance, resolution.Version.String(), resolution.Warning.ProposedVersion)
			} else {
				require.Nil(testInstance, resolution.Warning)
			}
		})
	}
}

func TestTagResolverResolvedVersionNotBelowHighestReachableTag(testInstance *testing.T) {
	view := &fakeRepositoryView{
		headCommit: testHeadCommitConstant,
		tags: []gitrepo.TagReference{
			{Name: "v1.9.4", Commit: testTaggedCommitConstant},
			{Name: "v1.2.0", Commit: testOlderTaggedCommitConstant},
		},
	}

	resolution, resolutionError := bom.TagResolver{}.Resolve(context.Background(), testRepositoryNameConstant, view, semver.ResolveBranchPolicy("master"))
	require.NoError(testInstance, resolutionError)
	require.GreaterOrEqual(testInstance, semver.Compare(resolution.Version, semver.Version{Major: 1, Minor: 9, Patch: 4}), 0)
}

func TestTagResolverPropagatesViewErrors(testInstance *testing.T) {
	headFailure := errors.New("head lookup failed")
	view := &fakeRepositoryView{headError: headFailure}

	_, resolutionError := bom.TagResolver{}.Resolve(context.Background(), testRepositoryNameConstant, view, semver.ResolveBranchPolicy("master"))
	require.ErrorIs(testInstance, resolutionError, headFailure)
}
