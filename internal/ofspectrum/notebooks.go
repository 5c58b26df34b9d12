package ofspectrum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Notebook is a user-owned container of media attachments, keyed to a
// watermark token.
type Notebook struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	TokenID string `json:"token_id,omitempty"`
}

// Media is an attachment on a notebook. The service must never expose
// the raw storage address; Has lets callers verify that.
type Media struct {
	ID        string `json:"id"`
	MediaType string `json:"media_type,omitempty"`
	FileName  string `json:"file_name,omitempty"`

	raw map[string]json.RawMessage
}

// Has reports whether the response body carried the named field.
func (m *Media) Has(field string) bool {
	_, ok := m.raw[field]
	return ok
}

// UnmarshalJSON captures both the typed fields and the raw field set.
func (m *Media) UnmarshalJSON(data []byte) error {
	type alias Media
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Media(a)
	return json.Unmarshal(data, &m.raw)
}

// NotebooksService accesses watermark-notes and their media.
type NotebooksService struct {
	client *Client
}

// List returns the notebooks associated with a token.
func (s *NotebooksService) List(ctx context.Context, tokenID string) ([]Notebook, error) {
	var notebooks []Notebook
	path := "/watermark-notes?token_id=" + url.QueryEscape(tokenID)
	if err := s.client.getJSON(ctx, path, &notebooks); err != nil {
		return nil, err
	}
	return notebooks, nil
}

// ListMedia returns a notebook's media attachments.
func (s *NotebooksService) ListMedia(ctx context.Context, noteID string) ([]Media, error) {
	var media []Media
	path := fmt.Sprintf("/watermark-notes/%s/media", url.PathEscape(noteID))
	if err := s.client.getJSON(ctx, path, &media); err != nil {
		return nil, err
	}
	return media, nil
}

// UploadMedia attaches a file to a notebook.
func (s *NotebooksService) UploadMedia(ctx context.Context, noteID, path, mediaType string) (*Media, error) {
	resp, err := s.client.postMultipart(ctx,
		fmt.Sprintf("/watermark-notes/%s/media", url.PathEscape(noteID)),
		filePart{field: "file", path: path, contentType: mediaType},
		map[string]string{"media_type": mediaType})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := s.client.checkResponse(resp)
	if err != nil {
		return nil, err
	}
	var media Media
	if err := json.Unmarshal(body, &media); err != nil {
		return nil, &Error{Kind: KindAPI, Message: fmt.Sprintf("failed to parse response: %v", err), Cause: err}
	}
	return &media, nil
}

// SignedURL returns a time-limited, proxied download link for a media
// attachment.
func (s *NotebooksService) SignedURL(ctx context.Context, mediaID string) (string, error) {
	var payload struct {
		URL string `json:"url"`
	}
	path := fmt.Sprintf("/watermark-notes/media/%s/signed-url", url.PathEscape(mediaID))
	if err := s.client.getJSON(ctx, path, &payload); err != nil {
		return "", err
	}
	return payload.URL, nil
}

// Delete removes a notebook and its media.
func (s *NotebooksService) Delete(ctx context.Context, noteID string) error {
	return s.client.delete(ctx, "/watermark-notes/"+url.PathEscape(noteID))
}
