package redmine

import "github.com/Sternrassler/redmine-client/pkg/resource"

// Resource descriptors. Trackers, issue statuses and versions are served in
// one response by Redmine and carry no pagination capability.
var (
	Issues = resource.Descriptor[Issue]{
		Name:           "issue",
		Collection:     "issues",
		CollectionPath: "issues",
		Paginated:      true,
	}

	Projects = resource.Descriptor[Project]{
		Name:           "project",
		Collection:     "projects",
		CollectionPath: "projects",
		Paginated:      true,
	}

	Users = resource.Descriptor[User]{
		Name:           "user",
		Collection:     "users",
		CollectionPath: "users",
		Paginated:      true,
	}

	TimeEntries = resource.Descriptor[TimeEntry]{
		Name:           "time_entry",
		Collection:     "time_entries",
		CollectionPath: "time_entries",
		Paginated:      true,
	}

	// Versions requires the "project_id" path parameter for listing and
	// creating.
	Versions = resource.Descriptor[Version]{
		Name:           "version",
		Collection:     "versions",
		CollectionPath: "projects/{project_id}/versions",
		ItemPath:       "versions/{id}",
	}

	Trackers = resource.Descriptor[Tracker]{
		Name:           "tracker",
		Collection:     "trackers",
		CollectionPath: "trackers",
	}

	IssueStatuses = resource.Descriptor[IssueStatus]{
		Name:           "issue_status",
		Collection:     "issue_statuses",
		CollectionPath: "issue_statuses",
	}
)

// currentUserPath is the item template for the authenticated user.
const currentUserPath = "users/current"
