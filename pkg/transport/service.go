// Package transport defines the wire messages and grpc.ServiceDesc for the
// authority service, hand-authored in place of protoc-generated stubs so the
// service can be served over the JSON codec in pkg/transport/jsoncodec.
package transport

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified grpc service name.
const ServiceName = "access.authority.v1.AuthorityService"

// AuthorityServer is implemented by anything serving the RPCs described by
// ServiceDesc.
type AuthorityServer interface {
	CanAccess(ctx context.Context, req *CanAccessRequest) (*CanAccessResponse, error)
	Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error)
	Parse(ctx context.Context, req *ParseRequest) (*ParseResponse, error)
	FindAuthorizations(ctx context.Context, req *FindAuthorizationsRequest) (*FindAuthorizationsResponse, error)
	Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)
	Unquote(ctx context.Context, req *UnquoteRequest) (*UnquoteResponse, error)
}

// CanAccessRequest carries the boolean expression and the principal ids
// whose authorization sets must each satisfy it.
type CanAccessRequest struct {
	Expression string   `json:"expression"`
	Principals []string `json:"principals"`
}

// CanAccessResponse reports the access decision.
type CanAccessResponse struct {
	Granted bool `json:"granted"`
}

// ValidateRequest carries an expression to check for well-formedness.
type ValidateRequest struct {
	Expression string `json:"expression"`
}

// ValidateResponse reports whether the expression is well-formed.
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// ParseRequest carries an expression to parse into its canonical form.
type ParseRequest struct {
	Expression string `json:"expression"`
}

// ParseResponse carries the minimal re-serialization of the parsed tree.
type ParseResponse struct {
	Canonical string `json:"canonical"`
}

// FindAuthorizationsRequest carries an expression to walk for authorization
// tokens.
type FindAuthorizationsRequest struct {
	Expression string `json:"expression"`
}

// FindAuthorizationsResponse carries the unescaped authorization tokens
// found in the expression, in tree order.
type FindAuthorizationsResponse struct {
	Authorizations []string `json:"authorizations"`
}

// QuoteRequest carries a raw authorization term to quote if required.
type QuoteRequest struct {
	Term string `json:"term"`
}

// QuoteResponse carries the quoted (or unchanged) term.
type QuoteResponse struct {
	Quoted string `json:"quoted"`
}

// UnquoteRequest carries a term to strip quoting/escaping from.
type UnquoteRequest struct {
	Term string `json:"term"`
}

// UnquoteResponse carries the unquoted term.
type UnquoteResponse struct {
	Term string `json:"term"`
}

// ServiceDesc describes the authority service for grpc.Server.RegisterService,
// mirroring what protoc-gen-go-grpc would otherwise generate.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthorityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CanAccess", Handler: canAccessHandler},
		{MethodName: "Validate", Handler: validateHandler},
		{MethodName: "Parse", Handler: parseHandler},
		{MethodName: "FindAuthorizations", Handler: findAuthorizationsHandler},
		{MethodName: "Quote", Handler: quoteHandler},
		{MethodName: "Unquote", Handler: unquoteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/transport/service.go",
}

func canAccessHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CanAccessRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthorityServer).CanAccess(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/CanAccess"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthorityServer).CanAccess(ctx, req.(*CanAccessRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ValidateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthorityServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Validate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthorityServer).Validate(ctx, req.(*ValidateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func parseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ParseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthorityServer).Parse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Parse"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthorityServer).Parse(ctx, req.(*ParseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func findAuthorizationsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FindAuthorizationsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthorityServer).FindAuthorizations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/FindAuthorizations"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthorityServer).FindAuthorizations(ctx, req.(*FindAuthorizationsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func quoteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(QuoteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthorityServer).Quote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Quote"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthorityServer).Quote(ctx, req.(*QuoteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func unquoteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UnquoteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthorityServer).Unquote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Unquote"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthorityServer).Unquote(ctx, req.(*UnquoteRequest))
	}
	return interceptor(ctx, in, info, handler)
}
