package graph

import "time"

// Notebook identifies one notebook in the account.
type Notebook struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Section identifies one section. NotebookID is filled by the caller when
// it is known; section-group enumeration does not return it.
type Section struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	NotebookID  string `json:"-"`
}

// SectionGroup is a folder of sections, nestable to arbitrary depth.
type SectionGroup struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// PageStub is the page metadata returned by section enumeration, fetched
// before any page content.
type PageStub struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Order      int       `json:"order"`
	Created    time.Time `json:"createdDateTime"`
	Modified   time.Time `json:"lastModifiedDateTime"`
	ContentURL string    `json:"contentUrl"`
	Links      PageLinks `json:"links"`
	SectionID  string    `json:"-"`
}

// PageLinks carries the alternate URL forms for a page. The client URL
// embeds the brace-wrapped page GUID that intra-notebook links use.
type PageLinks struct {
	Client Href `json:"oneNoteClientUrl"`
	Web    Href `json:"oneNoteWebUrl"`
}

type Href struct {
	Href string `json:"href"`
}

type listEnvelope[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}
