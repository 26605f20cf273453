package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rowfence/rowfence/pkg/configuration"
	"github.com/rowfence/rowfence/pkg/constants"
)

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger bound to the unit of work, falling back to the
// configured process logger.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(constants.LoggerKey)
	if logger == nil {
		return logrus.NewEntry(configuration.Use().Logger())
	}
	return logger.(*logrus.Entry)
}
