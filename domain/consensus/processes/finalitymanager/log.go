package finalitymanager

import "github.com/umbraproject/umbrad/infrastructure/logger"

var log = logger.RegisterSubSystem("FNLM")
