package redmine

import "time"

// IdentifiableName is a reference to another entity, rendered by Redmine
// as {"id": 1, "name": "Bug"} or <tracker id="1" name="Bug"/>.
type IdentifiableName struct {
	ID   int    `json:"id" xml:"id,attr"`
	Name string `json:"name,omitempty" xml:"name,attr,omitempty"`
}

// Issue is a Redmine issue. The *ID fields are only sent on create and update.
type Issue struct {
	ID             int               `json:"id,omitempty" xml:"id,omitempty"`
	Project        *IdentifiableName `json:"project,omitempty" xml:"project,omitempty"`
	Tracker        *IdentifiableName `json:"tracker,omitempty" xml:"tracker,omitempty"`
	Status         *IdentifiableName `json:"status,omitempty" xml:"status,omitempty"`
	Priority       *IdentifiableName `json:"priority,omitempty" xml:"priority,omitempty"`
	Author         *IdentifiableName `json:"author,omitempty" xml:"author,omitempty"`
	AssignedTo     *IdentifiableName `json:"assigned_to,omitempty" xml:"assigned_to,omitempty"`
	Subject        string            `json:"subject,omitempty" xml:"subject,omitempty"`
	Description    string            `json:"description,omitempty" xml:"description,omitempty"`
	StartDate      string            `json:"start_date,omitempty" xml:"start_date,omitempty"`
	DueDate        string            `json:"due_date,omitempty" xml:"due_date,omitempty"`
	DoneRatio      int               `json:"done_ratio,omitempty" xml:"done_ratio,omitempty"`
	EstimatedHours float64           `json:"estimated_hours,omitempty" xml:"estimated_hours,omitempty"`
	CreatedOn      *time.Time        `json:"created_on,omitempty" xml:"created_on,omitempty"`
	UpdatedOn      *time.Time        `json:"updated_on,omitempty" xml:"updated_on,omitempty"`

	ProjectID    int    `json:"project_id,omitempty" xml:"project_id,omitempty"`
	TrackerID    int    `json:"tracker_id,omitempty" xml:"tracker_id,omitempty"`
	StatusID     int    `json:"status_id,omitempty" xml:"status_id,omitempty"`
	PriorityID   int    `json:"priority_id,omitempty" xml:"priority_id,omitempty"`
	AssignedToID int    `json:"assigned_to_id,omitempty" xml:"assigned_to_id,omitempty"`
	Notes        string `json:"notes,omitempty" xml:"notes,omitempty"`
}

// Project is a Redmine project.
type Project struct {
	ID          int               `json:"id,omitempty" xml:"id,omitempty"`
	Name        string            `json:"name,omitempty" xml:"name,omitempty"`
	Identifier  string            `json:"identifier,omitempty" xml:"identifier,omitempty"`
	Description string            `json:"description,omitempty" xml:"description,omitempty"`
	Homepage    string            `json:"homepage,omitempty" xml:"homepage,omitempty"`
	Status      int               `json:"status,omitempty" xml:"status,omitempty"`
	IsPublic    bool              `json:"is_public,omitempty" xml:"is_public,omitempty"`
	Parent      *IdentifiableName `json:"parent,omitempty" xml:"parent,omitempty"`
	CreatedOn   *time.Time        `json:"created_on,omitempty" xml:"created_on,omitempty"`
	UpdatedOn   *time.Time        `json:"updated_on,omitempty" xml:"updated_on,omitempty"`

	ParentID int `json:"parent_id,omitempty" xml:"parent_id,omitempty"`
}

// User is a Redmine user account.
type User struct {
	ID          int        `json:"id,omitempty" xml:"id,omitempty"`
	Login       string     `json:"login,omitempty" xml:"login,omitempty"`
	Firstname   string     `json:"firstname,omitempty" xml:"firstname,omitempty"`
	Lastname    string     `json:"lastname,omitempty" xml:"lastname,omitempty"`
	Mail        string     `json:"mail,omitempty" xml:"mail,omitempty"`
	Admin       bool       `json:"admin,omitempty" xml:"admin,omitempty"`
	Status      int        `json:"status,omitempty" xml:"status,omitempty"`
	CreatedOn   *time.Time `json:"created_on,omitempty" xml:"created_on,omitempty"`
	LastLoginOn *time.Time `json:"last_login_on,omitempty" xml:"last_login_on,omitempty"`

	Password string `json:"password,omitempty" xml:"password,omitempty"`
}

// TimeEntry is time logged against a project or issue.
type TimeEntry struct {
	ID        int               `json:"id,omitempty" xml:"id,omitempty"`
	Project   *IdentifiableName `json:"project,omitempty" xml:"project,omitempty"`
	Issue     *IdentifiableName `json:"issue,omitempty" xml:"issue,omitempty"`
	User      *IdentifiableName `json:"user,omitempty" xml:"user,omitempty"`
	Activity  *IdentifiableName `json:"activity,omitempty" xml:"activity,omitempty"`
	Hours     float64           `json:"hours,omitempty" xml:"hours,omitempty"`
	Comments  string            `json:"comments,omitempty" xml:"comments,omitempty"`
	SpentOn   string            `json:"spent_on,omitempty" xml:"spent_on,omitempty"`
	CreatedOn *time.Time        `json:"created_on,omitempty" xml:"created_on,omitempty"`
	UpdatedOn *time.Time        `json:"updated_on,omitempty" xml:"updated_on,omitempty"`

	ProjectID  int `json:"project_id,omitempty" xml:"project_id,omitempty"`
	IssueID    int `json:"issue_id,omitempty" xml:"issue_id,omitempty"`
	ActivityID int `json:"activity_id,omitempty" xml:"activity_id,omitempty"`
}

// Version is a project milestone.
type Version struct {
	ID          int               `json:"id,omitempty" xml:"id,omitempty"`
	Project     *IdentifiableName `json:"project,omitempty" xml:"project,omitempty"`
	Name        string            `json:"name,omitempty" xml:"name,omitempty"`
	Description string            `json:"description,omitempty" xml:"description,omitempty"`
	Status      string            `json:"status,omitempty" xml:"status,omitempty"`
	DueDate     string            `json:"due_date,omitempty" xml:"due_date,omitempty"`
	Sharing     string            `json:"sharing,omitempty" xml:"sharing,omitempty"`
	CreatedOn   *time.Time        `json:"created_on,omitempty" xml:"created_on,omitempty"`
	UpdatedOn   *time.Time        `json:"updated_on,omitempty" xml:"updated_on,omitempty"`
}

// Tracker is an issue type such as Bug or Feature.
type Tracker struct {
	ID   int    `json:"id" xml:"id"`
	Name string `json:"name" xml:"name"`
}

// IssueStatus is a workflow state.
type IssueStatus struct {
	ID       int    `json:"id" xml:"id"`
	Name     string `json:"name" xml:"name"`
	IsClosed bool   `json:"is_closed,omitempty" xml:"is_closed,omitempty"`
}
