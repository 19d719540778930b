// File: api/schemas/snapshot.go
package schemas

// PageSnapshot is the structural description of a page handed to the planner.
// It is intentionally broad; relevance is left to the reasoning service.
type PageSnapshot struct {
	Title           string         `json:"title" yaml:"title"`
	MetaDescription string         `json:"metaDescription,omitempty" yaml:"meta_description,omitempty"`
	Headings        []Heading      `json:"headings" yaml:"headings"`
	Forms           []FormInfo     `json:"forms" yaml:"forms"`
	Buttons         []ButtonInfo   `json:"buttons" yaml:"buttons"`
	Links           []LinkInfo     `json:"links" yaml:"links"`
	Inputs          []InputInfo    `json:"inputs" yaml:"inputs"`
	Images          []ImageInfo    `json:"images" yaml:"images"`
	IPElements      []IPElement    `json:"ipElements" yaml:"ip_elements"`
	SearchResults   []SearchResult `json:"searchResults" yaml:"search_results"`
}

// Heading is an h1-h6 element.
type Heading struct {
	Level int    `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
}

// FormInfo describes a form and its nested fields.
type FormInfo struct {
	ID     string      `json:"id,omitempty" yaml:"id,omitempty"`
	Action string      `json:"action,omitempty" yaml:"action,omitempty"`
	Method string      `json:"method,omitempty" yaml:"method,omitempty"`
	Inputs []FormInput `json:"inputs" yaml:"inputs"`
}

// FormInput is a field nested inside a form.
type FormInput struct {
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

// ButtonInfo covers buttons and submit-like inputs.
type ButtonInfo struct {
	Type      string   `json:"type,omitempty" yaml:"type,omitempty"`
	Text      string   `json:"text,omitempty" yaml:"text,omitempty"`
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Classes   []string `json:"classes,omitempty" yaml:"classes,omitempty"`
	AriaLabel string   `json:"ariaLabel,omitempty" yaml:"aria_label,omitempty"`
}

// LinkInfo is an anchor element.
type LinkInfo struct {
	Href string `json:"href,omitempty" yaml:"href,omitempty"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
}

// InputInfo is a generic input, textarea or select.
type InputInfo struct {
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// ImageInfo is an img element.
type ImageInfo struct {
	Src string `json:"src,omitempty" yaml:"src,omitempty"`
	Alt string `json:"alt,omitempty" yaml:"alt,omitempty"`
	ID  string `json:"id,omitempty" yaml:"id,omitempty"`
}

// IPElement is an element that plausibly displays an IP address.
type IPElement struct {
	Text    string   `json:"text" yaml:"text"`
	ID      string   `json:"id,omitempty" yaml:"id,omitempty"`
	Classes []string `json:"classes,omitempty" yaml:"classes,omitempty"`
	Tag     string   `json:"tag" yaml:"tag"`
	DataIP  string   `json:"dataIp,omitempty" yaml:"data_ip,omitempty"`
}

// SearchResult is a search-result shaped element. It is also the item type of
// list extraction.
type SearchResult struct {
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	Snippet string `json:"snippet" yaml:"snippet"`
}
