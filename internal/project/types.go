// Package project stores connection profiles ("projects"): which BigQuery
// project to run queries in and which credentials to use.
package project

import "github.com/beequen/beequen/internal/core"

// Project is a stored connection profile.
type Project struct {
	// UUID identifies the profile. It is assigned on creation.
	UUID string `json:"uuid"`
	// ProjectID is the BigQuery project jobs run in.
	ProjectID string `json:"projectId"`
	// CredentialsPath points at a service account key file. Empty means
	// Application Default Credentials.
	CredentialsPath string `json:"credentialsPath,omitempty"`
}

// Clone creates a copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Profile returns what is needed to connect to the project.
func (p *Project) Profile() core.ConnectionProfile {
	return core.ConnectionProfile{
		ProjectID:       p.ProjectID,
		CredentialsPath: p.CredentialsPath,
	}
}

// Change reasons passed to observers.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// Observer is notified after the stored list changed.
type Observer interface {
	ProjectChanged(reason, uuid string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(reason, uuid string)

// ProjectChanged calls f.
func (f ObserverFunc) ProjectChanged(reason, uuid string) { f(reason, uuid) }
