package adapters

import "context"

type nopLogger struct{}

func (nopLogger) Info(string)                                         {}
func (nopLogger) InfoWithFields(string, map[string]interface{})       {}
func (nopLogger) Error(error, string)                                 {}
func (nopLogger) ErrorWithFields(error, string, map[string]interface{}) {
}
func (nopLogger) Debug(string)                                   {}
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}

type staticAuthorizer struct {
	token string
}

func (a *staticAuthorizer) Authorize(context.Context) (string, error) {
	return a.token, nil
}
