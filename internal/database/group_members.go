package database

import (
	"database/sql"
	"errors"
	"fmt"

	"swarmsync/internal/models"
)

func (t *Tx) UpsertGroupMember(m models.GroupMember) error {
	if m.Role == "" {
		m.Role = models.GroupRoleStandard
	}
	if m.RoleStatus == "" {
		m.RoleStatus = models.GroupRoleStatusAccepted
	}
	if _, err := t.exec(UpsertGroupMemberQuery, m.GroupID, m.ProfileID, string(m.Role), string(m.RoleStatus)); err != nil {
		return fmt.Errorf("failed to upsert group member: %w", err)
	}
	return nil
}

func (t *Tx) RemoveGroupMember(groupID, profileID string) error {
	if _, err := t.exec(DeleteGroupMemberQuery, groupID, profileID); err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	return nil
}

func (t *Tx) FetchGroupMember(groupID, profileID string) (*models.GroupMember, error) {
	var m models.GroupMember
	var role, status string
	err := t.queryRow(SelectGroupMemberQuery, groupID, profileID).Scan(&m.GroupID, &m.ProfileID, &role, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group member: %w", err)
	}
	m.Role = models.GroupMemberRole(role)
	m.RoleStatus = models.GroupMemberRoleStatus(status)
	return &m, nil
}

func (t *Tx) GroupMembers(groupID string) ([]models.GroupMember, error) {
	rows, err := t.query(SelectGroupMembersQuery, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group members: %w", err)
	}
	defer rows.Close()

	var out []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		var role, status string
		if err := rows.Scan(&m.GroupID, &m.ProfileID, &role, &status); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.Role = models.GroupMemberRole(role)
		m.RoleStatus = models.GroupMemberRoleStatus(status)
		out = append(out, m)
	}
	return out, rows.Err()
}
