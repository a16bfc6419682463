package protocol

import (
	"errors"

	"swarmsync/internal/models"
)

// ErrUnknownContent is returned when content carries no recognised sub-message.
var ErrUnknownContent = errors.New("content carries no known message")

// FromContent maps decoded content onto its message variant. Only the
// variant-specific fields are populated; the caller fills in Common.
func FromContent(c *Content) (Message, error) {
	switch {
	case c.ReceiptMessage != nil:
		if c.ReceiptMessage.Type != ReceiptRead {
			break
		}
		timestamps := make([]int64, 0, len(c.ReceiptMessage.Timestamps))
		for _, ts := range c.ReceiptMessage.Timestamps {
			timestamps = append(timestamps, int64(ts))
		}
		return &ReadReceipt{TimestampsMs: timestamps}, nil

	case c.TypingMessage != nil:
		return &TypingIndicator{Action: c.TypingMessage.Action}, nil

	case c.DataExtraction != nil:
		return &DataExtractionNotification{ExtractionKind: c.DataExtraction.Type}, nil

	case c.DataMessage != nil && c.DataMessage.Flags&DataMessageFlagExpirationTimerUpdate != 0:
		update := &ExpirationTimerUpdate{SyncTarget: c.DataMessage.SyncTarget}
		if c.ExpirationType != 0 || c.ExpirationTimer != 0 {
			update.DurationSeconds = c.ExpirationTimer
		} else {
			update.DurationSeconds = c.DataMessage.ExpireTimer
			update.LegacyFormat = true
		}
		return update, nil

	case c.UnsendRequest != nil:
		return &UnsendRequest{
			TargetTimestampMs: int64(c.UnsendRequest.TimestampMs),
			Author:            c.UnsendRequest.Author,
		}, nil

	case c.MessageRequestResponse != nil:
		return &MessageRequestResponse{
			IsApproved: c.MessageRequestResponse.IsApproved,
			Profile:    profileFrom(c.MessageRequestResponse.Profile, c.MessageRequestResponse.ProfileKey),
		}, nil

	case c.DataMessage != nil && c.DataMessage.GroupUpdate != nil:
		return groupUpdateFrom(c.DataMessage.GroupUpdate)

	case c.DataMessage != nil:
		return visibleMessageFrom(c.DataMessage), nil

	case c.CallMessage != nil:
		return &CallMessage{
			CallKind: c.CallMessage.Type,
			SDPs:     c.CallMessage.SDPs,
			UUID:     c.CallMessage.UUID,
		}, nil
	}
	return nil, ErrUnknownContent
}

func profileFrom(p *ProfileProto, key []byte) *Profile {
	if p == nil {
		return nil
	}
	return &Profile{
		DisplayName:       p.DisplayName,
		ProfilePictureURL: p.ProfilePicture,
		ProfileKey:        key,
	}
}

func visibleMessageFrom(d *DataMessage) *VisibleMessage {
	m := &VisibleMessage{
		SyncTarget: d.SyncTarget,
		Text:       d.Body,
		Profile:    profileFrom(d.Profile, d.ProfileKey),
	}
	for _, a := range d.Attachments {
		m.Attachments = append(m.Attachments, Attachment{
			ServerID:    a.ID,
			ContentType: a.ContentType,
			Key:         a.Key,
			Size:        a.Size,
			Digest:      a.Digest,
			FileName:    a.FileName,
			Width:       a.Width,
			Height:      a.Height,
			Caption:     a.Caption,
			URL:         a.URL,
		})
	}
	if d.Quote != nil {
		m.Quote = &Quote{TimestampMs: int64(d.Quote.ID), AuthorID: d.Quote.Author, Text: d.Quote.Text}
	}
	if len(d.Preview) > 0 && d.Preview[0].URL != "" {
		m.LinkPreview = &LinkPreview{URL: d.Preview[0].URL, Title: d.Preview[0].Title}
	}
	if d.Reaction != nil {
		m.Reaction = &Reaction{
			TimestampMs: int64(d.Reaction.ID),
			AuthorID:    d.Reaction.Author,
			Emoji:       d.Reaction.Emoji,
			Action:      d.Reaction.Action,
		}
	}
	return m
}

func groupUpdateFrom(g *GroupUpdateMessage) (Message, error) {
	switch {
	case g.Invite != nil:
		return &GroupUpdateInvite{
			GroupSessionID: g.Invite.GroupSessionID,
			GroupName:      g.Invite.Name,
			MemberAuthData: g.Invite.MemberAuthData,
			AdminSignature: g.Invite.AdminSignature,
		}, nil
	case g.Promote != nil:
		return &GroupUpdatePromote{GroupIdentitySeed: g.Promote.GroupIdentitySeed, GroupName: g.Promote.Name}, nil
	case g.InfoChange != nil:
		return &GroupUpdateInfoChange{
			ChangeType:               g.InfoChange.Type,
			UpdatedName:              g.InfoChange.UpdatedName,
			UpdatedExpirationSeconds: g.InfoChange.UpdatedExpiration,
			AdminSignature:           g.InfoChange.AdminSignature,
		}, nil
	case g.MemberChange != nil:
		return &GroupUpdateMemberChange{
			ChangeType:       g.MemberChange.Type,
			MemberSessionIDs: g.MemberChange.MemberSessionIDs,
			HistoryShared:    g.MemberChange.HistoryShared,
			AdminSignature:   g.MemberChange.AdminSignature,
		}, nil
	case g.MemberLeft != nil:
		return &GroupUpdateMemberLeft{}, nil
	case g.MemberLeftNotification != nil:
		return &GroupUpdateMemberLeftNotification{}, nil
	case g.InviteResponse != nil:
		return &GroupUpdateInviteResponse{IsApproved: g.InviteResponse.IsApproved}, nil
	case g.DeleteMemberContent != nil:
		return &GroupUpdateDeleteMemberContent{
			MemberSessionIDs: g.DeleteMemberContent.MemberSessionIDs,
			MessageHashes:    g.DeleteMemberContent.MessageHashes,
			AdminSignature:   g.DeleteMemberContent.AdminSignature,
		}, nil
	}
	return nil, ErrUnknownContent
}

// ApplyDisappearingConfig copies the content's per-message expiry onto the
// message. Callers skip this for community threads.
func ApplyDisappearingConfig(m Message, c *Content) {
	base := m.Base()
	base.ExpiresInSeconds = c.ExpirationTimer
	base.ExpiresType = models.DisappearingType(c.ExpirationType)
}

// UsesLegacyDisappearing reports whether the content only carries the legacy
// data-message timer, which identifies the sender's client generation.
func UsesLegacyDisappearing(c *Content) bool {
	if c.ExpirationType != 0 || c.ExpirationTimer != 0 {
		return false
	}
	return c.DataMessage != nil && c.DataMessage.ExpireTimer != 0
}
