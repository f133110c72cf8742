package batchverifier

import "github.com/umbraproject/umbrad/infrastructure/logger"

var log = logger.RegisterSubSystem("BTCH")
