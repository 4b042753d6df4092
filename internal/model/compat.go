package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Records written by older clients carry numeric ids, fractional scores,
// an "avatar" field instead of "profileImage" and sometimes only
// "createdAt". The decoders below accept both shapes; encoding always
// produces the current one.

// looseID decodes an id stored as either a JSON string or a JSON number.
type looseID string

func (id *looseID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = looseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = looseID(n.String())
	return nil
}

func looseIDs(ids []looseID) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		ID     looseID `json:"id"`
		Avatar string  `json:"avatar"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.ID = string(aux.ID)
	if u.ProfileImage == "" {
		u.ProfileImage = aux.Avatar
	}
	return nil
}

func (t *Thread) UnmarshalJSON(data []byte) error {
	type plain Thread
	aux := struct {
		*plain
		ID             looseID    `json:"id"`
		UserID         looseID    `json:"userId"`
		AllowedViewers []looseID  `json:"allowedViewers"`
		Avatar         string     `json:"avatar"`
		CreatedAt      *time.Time `json:"createdAt"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.ID = string(aux.ID)
	t.UserID = string(aux.UserID)
	t.AllowedViewers = looseIDs(aux.AllowedViewers)
	if t.ProfileImage == "" {
		t.ProfileImage = aux.Avatar
	}
	if t.Timestamp.IsZero() && aux.CreatedAt != nil {
		t.Timestamp = *aux.CreatedAt
	}
	return nil
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	type plain Comment
	aux := struct {
		*plain
		ID     looseID `json:"id"`
		UserID looseID `json:"userId"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.ID = string(aux.ID)
	c.UserID = string(aux.UserID)
	return nil
}

func (r *Reply) UnmarshalJSON(data []byte) error {
	type plain Reply
	aux := struct {
		*plain
		ID     looseID `json:"id"`
		UserID looseID `json:"userId"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ID = string(aux.ID)
	r.UserID = string(aux.UserID)
	return nil
}

func (a *Alert) UnmarshalJSON(data []byte) error {
	type plain Alert
	aux := struct {
		*plain
		ID            looseID `json:"id"`
		FromUserID    looseID `json:"fromUserId"`
		ThreadID      looseID `json:"threadId"`
		RelatedUserID looseID `json:"relatedUserId"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.ID = string(aux.ID)
	a.FromUserID = string(aux.FromUserID)
	a.ThreadID = string(aux.ThreadID)
	a.RelatedUserID = string(aux.RelatedUserID)
	return nil
}

func (r *RecentSearch) UnmarshalJSON(data []byte) error {
	type plain RecentSearch
	aux := struct {
		*plain
		ID        looseID    `json:"id"`
		Avatar    string     `json:"avatar"`
		Timestamp *time.Time `json:"timestamp"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ID = string(aux.ID)
	if r.ProfileImage == "" {
		r.ProfileImage = aux.Avatar
	}
	if r.ViewedAt.IsZero() && aux.Timestamp != nil {
		r.ViewedAt = *aux.Timestamp
	}
	return nil
}
