package auth

import "context"

type subjectKey struct{}

// WithSubject attaches the authenticated user id to ctx.
func WithSubject(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, subjectKey{}, uid)
}

func SubjectFrom(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(subjectKey{}).(string)
	return uid, ok && uid != ""
}
