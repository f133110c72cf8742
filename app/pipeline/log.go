package pipeline

import (
	"github.com/umbraproject/umbrad/infrastructure/logger"
	"github.com/umbraproject/umbrad/util/panics"
)

var log = logger.RegisterSubSystem("PIPE")
var spawn = panics.GoroutineWrapperFunc(log)
