package domain

// MemberCapacity is a user's role inside an organization.
type MemberCapacity string

const (
	CapacityAdmin  MemberCapacity = "admin"
	CapacityEditor MemberCapacity = "editor"
	CapacityMember MemberCapacity = "member"
)

// PackageState represents the lifecycle of a catalog package.
type PackageState string

const (
	PackageStateActive  PackageState = "active"
	PackageStateDraft   PackageState = "draft"
	PackageStateDeleted PackageState = "deleted"
)

// ResourceState represents the lifecycle of a catalog resource. Deleted
// resources are kept as tombstones carrying the last sync cursor.
type ResourceState string

const (
	ResourceStateActive  ResourceState = "active"
	ResourceStateDeleted ResourceState = "deleted"
)

// URLTypeUpload marks resources whose content lives in the blob store.
const URLTypeUpload = "upload"

// ResourceTypeStream tags resources fed by streamed objects.
const ResourceTypeStream = "stream"

// JobStatus represents the lifecycle of a background job.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
	JobStatusFailed   JobStatus = "failed"
)

// OutstandingJobStatuses are the statuses counted against the scheduling cap.
var OutstandingJobStatuses = []JobStatus{JobStatusQueued, JobStatusRunning}
