package models

type GroupMemberRole string

const (
	GroupRoleStandard GroupMemberRole = "standard"
	GroupRoleAdmin    GroupMemberRole = "admin"
)

type GroupMemberRoleStatus string

const (
	GroupRoleStatusAccepted GroupMemberRoleStatus = "accepted"
	GroupRoleStatusPending  GroupMemberRoleStatus = "pending"
	GroupRoleStatusFailed   GroupMemberRoleStatus = "failed"
)

// GroupMember is a local roster entry for a group thread.
type GroupMember struct {
	GroupID    string                `json:"group_id"`
	ProfileID  string                `json:"profile_id"`
	Role       GroupMemberRole       `json:"role"`
	RoleStatus GroupMemberRoleStatus `json:"role_status"`
}
