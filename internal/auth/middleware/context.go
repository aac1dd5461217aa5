package auth

import "context"

type subjectKey struct{}

// WithSubject records the authenticated user id. JWTMiddleware sets it from
// the token's sub claim; attempts started over HTTP belong to this user.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the authenticated user id, or "" for anonymous
// requests.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}
