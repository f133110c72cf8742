package consensus

import "github.com/umbraproject/umbrad/infrastructure/logger"

var log = logger.RegisterSubSystem("CNSS")
