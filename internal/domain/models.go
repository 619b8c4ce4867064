package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization owns packages. Sync events act on behalf of one of its admins.
type Organization struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Members   []Member  `db:"-" json:"members"`
}

// Admin returns the first member with admin capacity.
func (o *Organization) Admin() (*Member, bool) {
	for i := range o.Members {
		if o.Members[i].Capacity == CapacityAdmin {
			return &o.Members[i], true
		}
	}
	return nil, false
}

// Member links a user to an organization.
type Member struct {
	OrganizationID uuid.UUID      `db:"organization_id" json:"organization_id"`
	UserID         uuid.UUID      `db:"user_id" json:"user_id"`
	Capacity       MemberCapacity `db:"capacity" json:"capacity"`
}

// Package is a catalog dataset grouping resources.
type Package struct {
	ID                uuid.UUID    `db:"id" json:"id"`
	Name              string       `db:"name" json:"name"`
	Title             string       `db:"title" json:"title"`
	OwnerOrgID        uuid.UUID    `db:"owner_org_id" json:"owner_org_id"`
	OrganizationName  string       `db:"organization_name" json:"organization_name"`
	StorageKeySegment string       `db:"storage_key_segment" json:"storage_key_segment"`
	State             PackageState `db:"state" json:"state"`
	Private           bool         `db:"private" json:"private"`
	CreatedBy         *uuid.UUID   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
	Resources         []Resource   `db:"-" json:"resources"`
}

// ResourceByName returns the resource with exactly the given name.
func (p *Package) ResourceByName(name string) *Resource {
	for i := range p.Resources {
		if p.Resources[i].Name == name {
			return &p.Resources[i]
		}
	}
	return nil
}

// Resource is a catalog file. StorageKey, Sequencer and LastModified form the
// sync cursor and are nil until an upload or a sync event sets them.
type Resource struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	PackageID        uuid.UUID     `db:"package_id" json:"package_id"`
	Name             string        `db:"name" json:"name"`
	URL              string        `db:"url" json:"url"`
	URLType          string        `db:"url_type" json:"url_type"`
	Format           string        `db:"format" json:"format"`
	Size             int64         `db:"size" json:"size"`
	StorageKey       *string       `db:"storage_key" json:"storage_key,omitempty"`
	Sequencer        *string       `db:"sequencer" json:"sequencer,omitempty"`
	LastModified     *time.Time    `db:"last_modified" json:"last_modified,omitempty"`
	ResourceType     *string       `db:"resource_type" json:"resource_type,omitempty"`
	UploadInProgress bool          `db:"upload_in_progress" json:"upload_in_progress"`
	State            ResourceState `db:"state" json:"state"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// MultipartUpload is a live chunked-upload session. ID is the backend upload id.
type MultipartUpload struct {
	ID               string     `db:"id" json:"id"`
	ResourceID       uuid.UUID  `db:"resource_id" json:"resource_id"`
	DestinationKey   string     `db:"destination_key" json:"destination_key"`
	Size             int64      `db:"size" json:"size"`
	OriginalFilename string     `db:"original_filename" json:"original_filename"`
	InitiatedAt      time.Time  `db:"initiated_at" json:"initiated_at"`
	InitiatedBy      *uuid.UUID `db:"initiated_by" json:"initiated_by,omitempty"`
	PartCount        int        `db:"part_count" json:"part_count"`
}

// MultipartPart records one uploaded part and its backend integrity tag.
type MultipartPart struct {
	UploadID   string    `db:"upload_id" json:"upload_id"`
	PartNumber int32     `db:"part_number" json:"part_number"`
	ETag       string    `db:"etag" json:"etag"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Job is a queued background job.
type Job struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Title      string     `db:"title" json:"title"`
	Status     JobStatus  `db:"status" json:"status"`
	Error      string     `db:"error" json:"error"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	StartedAt  *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}
