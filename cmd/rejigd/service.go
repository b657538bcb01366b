package main

import (
	"context"
	"time"

	"github.com/rejig/rejig"
	"github.com/rejig/rejig/library"
	"github.com/rejig/rejig/schema"
)

// Request is one frame from a client.  Exactly one of Spec or Name
// selects the transformation; Save, Delete, and List are library
// management operations that need no source document.
type Request struct {
	Id string `json:"id,omitempty"`

	// Spec is an inline transformation spec.
	Spec interface{} `json:"spec,omitempty"`

	// Name selects a spec stored in the library.
	Name string `json:"name,omitempty"`

	// Source is the document to transform.
	Source interface{} `json:"source,omitempty"`

	// Dest is an optional starting destination.
	Dest interface{} `json:"dest,omitempty"`

	Save   string `json:"save,omitempty"`
	Delete string `json:"delete,omitempty"`
	List   bool   `json:"list,omitempty"`
}

// Response answers a Request.  Id echoes the request's Id.
type Response struct {
	Id     string      `json:"id,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Names  []string    `json:"names,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type Service struct {
	engine  *rejig.Engine
	store   *library.Store
	timeout time.Duration
}

// Do executes one request frame.  Errors are reported in the
// response, never as a Go error, so a bad frame can't take down a
// connection.
func (s *Service) Do(ctx context.Context, req *Request) *Response {
	resp := &Response{Id: req.Id}

	fail := func(err error) *Response {
		resp.Error = err.Error()
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch {
	case req.List:
		if s.store == nil {
			resp.Error = "no spec library configured"
			return resp
		}
		names, err := s.store.Names(ctx)
		if err != nil {
			return fail(err)
		}
		resp.Names = names
		return resp

	case req.Delete != "":
		if s.store == nil {
			resp.Error = "no spec library configured"
			return resp
		}
		if err := s.store.Delete(ctx, req.Delete); err != nil {
			return fail(err)
		}
		return resp

	case req.Save != "":
		if s.store == nil {
			resp.Error = "no spec library configured"
			return resp
		}
		if req.Spec == nil {
			resp.Error = "save needs a spec"
			return resp
		}
		if issues, err := schema.Validate(req.Spec); err != nil {
			return fail(err)
		} else if 0 < len(issues) {
			resp.Error = "invalid spec: " + issues[0]
			return resp
		}
		if err := s.store.Put(ctx, req.Save, req.Spec); err != nil {
			return fail(err)
		}
		return resp
	}

	spec := req.Spec
	if spec == nil && req.Name != "" {
		if s.store == nil {
			resp.Error = "no spec library configured"
			return resp
		}
		stored, err := s.store.Get(ctx, req.Name)
		if err != nil {
			return fail(err)
		}
		spec = stored
	}
	if spec == nil {
		resp.Error = "need a spec or a name"
		return resp
	}

	result, err := s.engine.Apply(ctx, spec, req.Source, req.Dest)
	if err != nil {
		return fail(err)
	}
	resp.Result = result
	return resp
}
