package contextualstatemanager

import "github.com/umbraproject/umbrad/infrastructure/logger"

var log = logger.RegisterSubSystem("CSTM")
