package collection

import (
	"postern/internal/auth"
)

// Request is one saved HTTP request. A nil Auth inherits from the
// enclosing folder chain; an explicit none config stops inheritance.
type Request struct {
	ID       string             `yaml:"id" json:"id"`
	Name     string             `yaml:"name" json:"name"`
	Method   string             `yaml:"method" json:"method"`
	URL      string             `yaml:"url" json:"url"`
	Headers  []auth.HeaderEntry `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body     string             `yaml:"body,omitempty" json:"body,omitempty"`
	FolderID string             `yaml:"folderId,omitempty" json:"folderId,omitempty"`
	Auth     *auth.Config       `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// Folder groups requests and optionally carries an auth config its
// members inherit. Folders nest via ParentID.
type Folder struct {
	ID       string       `yaml:"id" json:"id"`
	Name     string       `yaml:"name" json:"name"`
	ParentID string       `yaml:"parentId,omitempty" json:"parentId,omitempty"`
	Auth     *auth.Config `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// Collection is the top-level container and the root of the auth
// inheritance chain.
type Collection struct {
	ID       string       `yaml:"id" json:"id"`
	Name     string       `yaml:"name" json:"name"`
	Auth     *auth.Config `yaml:"auth,omitempty" json:"auth,omitempty"`
	Folders  []Folder     `yaml:"folders,omitempty" json:"folders,omitempty"`
	Requests []Request    `yaml:"requests,omitempty" json:"requests,omitempty"`
}
