// Package service provides the provider registry: services register
// their tool definitions once and callers execute tools by id without
// knowing which provider owns them.
package service
