package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// DecodeContent parses a serialized Content message.
func DecodeContent(b []byte) (*Content, error) {
	c := &Content{}
	err := parseFields("Content", b, func(f field) error {
		var (
			raw []byte
			err error
		)
		switch f.num {
		case 1:
			if raw, err = f.asMessage("dataMessage"); err == nil {
				c.DataMessage, err = decodeDataMessage(raw)
				err = f.nested("dataMessage", err)
			}
		case 2:
			if raw, err = f.asMessage("callMessage"); err == nil {
				c.CallMessage, err = decodeCallMessage(raw)
				err = f.nested("callMessage", err)
			}
		case 5:
			if raw, err = f.asMessage("receiptMessage"); err == nil {
				c.ReceiptMessage, err = decodeReceipt(raw)
				err = f.nested("receiptMessage", err)
			}
		case 6:
			if raw, err = f.asMessage("typingMessage"); err == nil {
				c.TypingMessage, err = decodeTyping(raw)
				err = f.nested("typingMessage", err)
			}
		case 8:
			if raw, err = f.asMessage("dataExtractionNotification"); err == nil {
				c.DataExtraction, err = decodeDataExtraction(raw)
				err = f.nested("dataExtractionNotification", err)
			}
		case 9:
			if raw, err = f.asMessage("unsendRequest"); err == nil {
				c.UnsendRequest, err = decodeUnsend(raw)
				err = f.nested("unsendRequest", err)
			}
		case 10:
			if raw, err = f.asMessage("messageRequestResponse"); err == nil {
				c.MessageRequestResponse, err = decodeMessageRequestResponse(raw)
				err = f.nested("messageRequestResponse", err)
			}
		case 12:
			c.ExpirationType, err = f.asUint32("expirationType")
		case 13:
			c.ExpirationTimer, err = f.asUint32("expirationTimer")
		case 14:
			c.SigTimestampMs, err = f.asUint("sigTimestamp")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func decodeDataMessage(b []byte) (*DataMessage, error) {
	m := &DataMessage{}
	err := parseFields("DataMessage", b, func(f field) error {
		var (
			raw []byte
			err error
		)
		switch f.num {
		case 1:
			m.Body, err = f.asString("body")
		case 2:
			if raw, err = f.asMessage("attachments"); err == nil {
				var a AttachmentPointer
				a, err = decodeAttachment(raw)
				m.Attachments = append(m.Attachments, a)
				err = f.nested("attachments", err)
			}
		case 4:
			m.Flags, err = f.asUint32("flags")
		case 5:
			m.ExpireTimer, err = f.asUint32("expireTimer")
		case 6:
			m.ProfileKey, err = f.asBytes("profileKey")
		case 7:
			m.TimestampMs, err = f.asUint("timestamp")
		case 8:
			if raw, err = f.asMessage("quote"); err == nil {
				m.Quote, err = decodeQuote(raw)
				err = f.nested("quote", err)
			}
		case 10:
			if raw, err = f.asMessage("preview"); err == nil {
				var p PreviewProto
				p, err = decodePreview(raw)
				m.Preview = append(m.Preview, p)
				err = f.nested("preview", err)
			}
		case 11:
			if raw, err = f.asMessage("reaction"); err == nil {
				m.Reaction, err = decodeReaction(raw)
				err = f.nested("reaction", err)
			}
		case 101:
			if raw, err = f.asMessage("profile"); err == nil {
				m.Profile, err = decodeProfile(raw)
				err = f.nested("profile", err)
			}
		case 105:
			m.SyncTarget, err = f.asString("syncTarget")
		case 120:
			if raw, err = f.asMessage("groupUpdateMessage"); err == nil {
				m.GroupUpdate, err = decodeGroupUpdate(raw)
				err = f.nested("groupUpdateMessage", err)
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodeAttachment(b []byte) (AttachmentPointer, error) {
	var a AttachmentPointer
	err := parseFields("AttachmentPointer", b, func(f field) (err error) {
		switch f.num {
		case 1:
			a.ID, err = f.asUint("id")
		case 2:
			a.ContentType, err = f.asString("contentType")
		case 3:
			a.Key, err = f.asBytes("key")
		case 4:
			a.Size, err = f.asUint32("size")
		case 6:
			a.Digest, err = f.asBytes("digest")
		case 7:
			a.FileName, err = f.asString("fileName")
		case 9:
			a.Width, err = f.asUint32("width")
		case 10:
			a.Height, err = f.asUint32("height")
		case 11:
			a.Caption, err = f.asString("caption")
		case 101:
			a.URL, err = f.asString("url")
		}
		return err
	})
	return a, err
}

func decodeQuote(b []byte) (*QuoteProto, error) {
	q := &QuoteProto{}
	err := parseFields("Quote", b, func(f field) (err error) {
		switch f.num {
		case 1:
			q.ID, err = f.asUint("id")
		case 2:
			q.Author, err = f.asString("author")
		case 3:
			q.Text, err = f.asString("text")
		}
		return err
	})
	return q, err
}

func decodePreview(b []byte) (PreviewProto, error) {
	var p PreviewProto
	err := parseFields("Preview", b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.URL, err = f.asString("url")
		case 2:
			p.Title, err = f.asString("title")
		}
		return err
	})
	return p, err
}

func decodeReaction(b []byte) (*ReactionProto, error) {
	r := &ReactionProto{}
	err := parseFields("Reaction", b, func(f field) (err error) {
		switch f.num {
		case 1:
			r.ID, err = f.asUint("id")
		case 2:
			r.Author, err = f.asString("author")
		case 3:
			r.Emoji, err = f.asString("emoji")
		case 4:
			var v uint32
			v, err = f.asUint32("action")
			r.Action = ReactionAction(v)
		}
		return err
	})
	return r, err
}

func decodeProfile(b []byte) (*ProfileProto, error) {
	p := &ProfileProto{}
	err := parseFields("LokiProfile", b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.DisplayName, err = f.asString("displayName")
		case 2:
			p.ProfilePicture, err = f.asString("profilePicture")
		}
		return err
	})
	return p, err
}

func decodeCallMessage(b []byte) (*CallMessageProto, error) {
	c := &CallMessageProto{}
	err := parseFields("CallMessage", b, func(f field) (err error) {
		switch f.num {
		case 1:
			var v uint32
			v, err = f.asUint32("type")
			c.Type = CallKind(v)
		case 2:
			var s string
			s, err = f.asString("sdps")
			c.SDPs = append(c.SDPs, s)
		case 5:
			c.UUID, err = f.asString("uuid")
		}
		return err
	})
	return c, err
}

func decodeReceipt(b []byte) (*ReceiptMessage, error) {
	r := &ReceiptMessage{}
	err := parseFields("ReceiptMessage", b, func(f field) (err error) {
		switch f.num {
		case 1:
			var v uint32
			v, err = f.asUint32("type")
			r.Type = ReceiptType(v)
		case 2:
			var ts []uint64
			ts, err = f.asPackedUints("timestamp")
			r.Timestamps = append(r.Timestamps, ts...)
		}
		return err
	})
	return r, err
}

func decodeTyping(b []byte) (*TypingMessage, error) {
	t := &TypingMessage{}
	err := parseFields("TypingMessage", b, func(f field) (err error) {
		switch f.num {
		case 1:
			t.TimestampMs, err = f.asUint("timestamp")
		case 2:
			var v uint32
			v, err = f.asUint32("action")
			t.Action = TypingAction(v)
		}
		return err
	})
	return t, err
}

func decodeDataExtraction(b []byte) (*DataExtractionProto, error) {
	d := &DataExtractionProto{}
	err := parseFields("DataExtractionNotification", b, func(f field) (err error) {
		switch f.num {
		case 1:
			var v uint32
			v, err = f.asUint32("type")
			d.Type = ExtractionKind(v)
		case 2:
			d.TimestampMs, err = f.asUint("timestamp")
		}
		return err
	})
	return d, err
}

func decodeUnsend(b []byte) (*UnsendProto, error) {
	u := &UnsendProto{}
	err := parseFields("UnsendRequest", b, func(f field) (err error) {
		switch f.num {
		case 1:
			u.TimestampMs, err = f.asUint("timestamp")
		case 2:
			u.Author, err = f.asString("author")
		}
		return err
	})
	return u, err
}

func decodeMessageRequestResponse(b []byte) (*MessageRequestResponseProto, error) {
	m := &MessageRequestResponseProto{}
	err := parseFields("MessageRequestResponse", b, func(f field) error {
		var (
			raw []byte
			err error
		)
		switch f.num {
		case 1:
			m.IsApproved, err = f.asBool("isApproved")
		case 2:
			m.ProfileKey, err = f.asBytes("profileKey")
		case 3:
			if raw, err = f.asMessage("profile"); err == nil {
				m.Profile, err = decodeProfile(raw)
				err = f.nested("profile", err)
			}
		}
		return err
	})
	return m, err
}

func decodeGroupUpdate(b []byte) (*GroupUpdateMessage, error) {
	g := &GroupUpdateMessage{}
	err := parseFields("GroupUpdateMessage", b, func(f field) error {
		var (
			raw []byte
			err error
		)
		switch f.num {
		case 1:
			if raw, err = f.asMessage("inviteMessage"); err == nil {
				g.Invite, err = decodeGroupInvite(raw)
				err = f.nested("inviteMessage", err)
			}
		case 2:
			if raw, err = f.asMessage("infoChangeMessage"); err == nil {
				g.InfoChange, err = decodeGroupInfoChange(raw)
				err = f.nested("infoChangeMessage", err)
			}
		case 3:
			if raw, err = f.asMessage("memberChangeMessage"); err == nil {
				g.MemberChange, err = decodeGroupMemberChange(raw)
				err = f.nested("memberChangeMessage", err)
			}
		case 4:
			if raw, err = f.asMessage("promoteMessage"); err == nil {
				g.Promote, err = decodeGroupPromote(raw)
				err = f.nested("promoteMessage", err)
			}
		case 5:
			if _, err = f.asMessage("memberLeftMessage"); err == nil {
				g.MemberLeft = &struct{}{}
			}
		case 6:
			if raw, err = f.asMessage("inviteResponse"); err == nil {
				g.InviteResponse = &GroupInviteResponseProto{}
				err = f.nested("inviteResponse", parseFields("GroupUpdateInviteResponseMessage", raw, func(inner field) (err error) {
					if inner.num == 1 {
						g.InviteResponse.IsApproved, err = inner.asBool("isApproved")
					}
					return err
				}))
			}
		case 7:
			if raw, err = f.asMessage("deleteMemberContent"); err == nil {
				g.DeleteMemberContent, err = decodeGroupDeleteMemberContent(raw)
				err = f.nested("deleteMemberContent", err)
			}
		case 8:
			if _, err = f.asMessage("memberLeftNotificationMessage"); err == nil {
				g.MemberLeftNotification = &struct{}{}
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func decodeGroupInvite(b []byte) (*GroupInviteProto, error) {
	m := &GroupInviteProto{}
	err := parseFields("GroupUpdateInviteMessage", b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.GroupSessionID, err = f.asString("groupSessionId")
		case 2:
			m.Name, err = f.asString("name")
		case 3:
			m.MemberAuthData, err = f.asBytes("memberAuthData")
		case 4:
			m.AdminSignature, err = f.asBytes("adminSignature")
		}
		return err
	})
	return m, err
}

func decodeGroupInfoChange(b []byte) (*GroupInfoChangeProto, error) {
	m := &GroupInfoChangeProto{}
	err := parseFields("GroupUpdateInfoChangeMessage", b, func(f field) (err error) {
		switch f.num {
		case 1:
			var v uint32
			v, err = f.asUint32("type")
			m.Type = InfoChangeType(v)
		case 2:
			m.UpdatedName, err = f.asString("updatedName")
		case 3:
			m.UpdatedExpiration, err = f.asUint32("updatedExpiration")
		case 4:
			m.AdminSignature, err = f.asBytes("adminSignature")
		}
		return err
	})
	return m, err
}

func decodeGroupMemberChange(b []byte) (*GroupMemberChangeProto, error) {
	m := &GroupMemberChangeProto{}
	err := parseFields("GroupUpdateMemberChangeMessage", b, func(f field) (err error) {
		switch f.num {
		case 1:
			var v uint32
			v, err = f.asUint32("type")
			m.Type = MemberChangeType(v)
		case 2:
			var s string
			s, err = f.asString("memberSessionIds")
			m.MemberSessionIDs = append(m.MemberSessionIDs, s)
		case 3:
			m.HistoryShared, err = f.asBool("historyShared")
		case 4:
			m.AdminSignature, err = f.asBytes("adminSignature")
		}
		return err
	})
	return m, err
}

func decodeGroupPromote(b []byte) (*GroupPromoteProto, error) {
	m := &GroupPromoteProto{}
	err := parseFields("GroupUpdatePromoteMessage", b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.GroupIdentitySeed, err = f.asBytes("groupIdentitySeed")
		case 2:
			m.Name, err = f.asString("name")
		}
		return err
	})
	return m, err
}

func decodeGroupDeleteMemberContent(b []byte) (*GroupDeleteMemberContentProto, error) {
	m := &GroupDeleteMemberContentProto{}
	err := parseFields("GroupUpdateDeleteMemberContentMessage", b, func(f field) (err error) {
		var s string
		switch f.num {
		case 1:
			s, err = f.asString("memberSessionIds")
			m.MemberSessionIDs = append(m.MemberSessionIDs, s)
		case 2:
			s, err = f.asString("messageHashes")
			m.MessageHashes = append(m.MessageHashes, s)
		case 3:
			m.AdminSignature, err = f.asBytes("adminSignature")
		}
		return err
	})
	return m, err
}

// EncodeContent serializes c. Zero-valued scalar fields are omitted.
func EncodeContent(c *Content) []byte {
	var b []byte
	if c.DataMessage != nil {
		b = appendMessage(b, 1, encodeDataMessage(c.DataMessage))
	}
	if m := c.CallMessage; m != nil {
		var inner []byte
		inner = appendVarint(inner, 1, uint64(m.Type))
		for _, sdp := range m.SDPs {
			inner = protowire.AppendTag(inner, 2, protowire.BytesType)
			inner = protowire.AppendString(inner, sdp)
		}
		inner = appendString(inner, 5, m.UUID)
		b = appendMessage(b, 2, inner)
	}
	if m := c.ReceiptMessage; m != nil {
		var inner []byte
		inner = appendVarint(inner, 1, uint64(m.Type))
		if len(m.Timestamps) > 0 {
			var packed []byte
			for _, ts := range m.Timestamps {
				packed = protowire.AppendVarint(packed, ts)
			}
			inner = appendBytes(inner, 2, packed)
		}
		b = appendMessage(b, 5, inner)
	}
	if m := c.TypingMessage; m != nil {
		var inner []byte
		inner = appendVarint(inner, 1, m.TimestampMs)
		inner = appendVarint(inner, 2, uint64(m.Action))
		b = appendMessage(b, 6, inner)
	}
	if m := c.DataExtraction; m != nil {
		var inner []byte
		inner = appendVarint(inner, 1, uint64(m.Type))
		inner = appendVarint(inner, 2, m.TimestampMs)
		b = appendMessage(b, 8, inner)
	}
	if m := c.UnsendRequest; m != nil {
		var inner []byte
		inner = appendVarint(inner, 1, m.TimestampMs)
		inner = appendString(inner, 2, m.Author)
		b = appendMessage(b, 9, inner)
	}
	if m := c.MessageRequestResponse; m != nil {
		var inner []byte
		inner = appendBool(inner, 1, m.IsApproved)
		inner = appendBytes(inner, 2, m.ProfileKey)
		if m.Profile != nil {
			inner = appendMessage(inner, 3, encodeProfile(m.Profile))
		}
		b = appendMessage(b, 10, inner)
	}
	b = appendVarint(b, 12, uint64(c.ExpirationType))
	b = appendVarint(b, 13, uint64(c.ExpirationTimer))
	b = appendVarint(b, 14, c.SigTimestampMs)
	return b
}

func encodeDataMessage(m *DataMessage) []byte {
	var b []byte
	b = appendString(b, 1, m.Body)
	for _, a := range m.Attachments {
		var inner []byte
		inner = appendFixed64(inner, 1, a.ID)
		inner = appendString(inner, 2, a.ContentType)
		inner = appendBytes(inner, 3, a.Key)
		inner = appendVarint(inner, 4, uint64(a.Size))
		inner = appendBytes(inner, 6, a.Digest)
		inner = appendString(inner, 7, a.FileName)
		inner = appendVarint(inner, 9, uint64(a.Width))
		inner = appendVarint(inner, 10, uint64(a.Height))
		inner = appendString(inner, 11, a.Caption)
		inner = appendString(inner, 101, a.URL)
		b = appendMessage(b, 2, inner)
	}
	b = appendVarint(b, 4, uint64(m.Flags))
	b = appendVarint(b, 5, uint64(m.ExpireTimer))
	b = appendBytes(b, 6, m.ProfileKey)
	b = appendVarint(b, 7, m.TimestampMs)
	if q := m.Quote; q != nil {
		var inner []byte
		inner = appendVarint(inner, 1, q.ID)
		inner = appendString(inner, 2, q.Author)
		inner = appendString(inner, 3, q.Text)
		b = appendMessage(b, 8, inner)
	}
	for _, p := range m.Preview {
		var inner []byte
		inner = appendString(inner, 1, p.URL)
		inner = appendString(inner, 2, p.Title)
		b = appendMessage(b, 10, inner)
	}
	if r := m.Reaction; r != nil {
		var inner []byte
		inner = appendVarint(inner, 1, r.ID)
		inner = appendString(inner, 2, r.Author)
		inner = appendString(inner, 3, r.Emoji)
		inner = appendVarint(inner, 4, uint64(r.Action))
		b = appendMessage(b, 11, inner)
	}
	if m.Profile != nil {
		b = appendMessage(b, 101, encodeProfile(m.Profile))
	}
	b = appendString(b, 105, m.SyncTarget)
	if m.GroupUpdate != nil {
		b = appendMessage(b, 120, encodeGroupUpdate(m.GroupUpdate))
	}
	return b
}

func encodeProfile(p *ProfileProto) []byte {
	var b []byte
	b = appendString(b, 1, p.DisplayName)
	b = appendString(b, 2, p.ProfilePicture)
	return b
}

func appendRepeatedString(b []byte, num protowire.Number, values []string) []byte {
	for _, v := range values {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

func encodeGroupUpdate(g *GroupUpdateMessage) []byte {
	var b []byte
	if m := g.Invite; m != nil {
		var inner []byte
		inner = appendString(inner, 1, m.GroupSessionID)
		inner = appendString(inner, 2, m.Name)
		inner = appendBytes(inner, 3, m.MemberAuthData)
		inner = appendBytes(inner, 4, m.AdminSignature)
		b = appendMessage(b, 1, inner)
	}
	if m := g.InfoChange; m != nil {
		var inner []byte
		inner = appendVarint(inner, 1, uint64(m.Type))
		inner = appendString(inner, 2, m.UpdatedName)
		inner = appendVarint(inner, 3, uint64(m.UpdatedExpiration))
		inner = appendBytes(inner, 4, m.AdminSignature)
		b = appendMessage(b, 2, inner)
	}
	if m := g.MemberChange; m != nil {
		var inner []byte
		inner = appendVarint(inner, 1, uint64(m.Type))
		inner = appendRepeatedString(inner, 2, m.MemberSessionIDs)
		inner = appendBool(inner, 3, m.HistoryShared)
		inner = appendBytes(inner, 4, m.AdminSignature)
		b = appendMessage(b, 3, inner)
	}
	if m := g.Promote; m != nil {
		var inner []byte
		inner = appendBytes(inner, 1, m.GroupIdentitySeed)
		inner = appendString(inner, 2, m.Name)
		b = appendMessage(b, 4, inner)
	}
	if g.MemberLeft != nil {
		b = appendMessage(b, 5, nil)
	}
	if m := g.InviteResponse; m != nil {
		b = appendMessage(b, 6, appendBool(nil, 1, m.IsApproved))
	}
	if m := g.DeleteMemberContent; m != nil {
		var inner []byte
		inner = appendRepeatedString(inner, 1, m.MemberSessionIDs)
		inner = appendRepeatedString(inner, 2, m.MessageHashes)
		inner = appendBytes(inner, 3, m.AdminSignature)
		b = appendMessage(b, 7, inner)
	}
	if g.MemberLeftNotification != nil {
		b = appendMessage(b, 8, nil)
	}
	return b
}
