package semanticverifier

import "github.com/umbraproject/umbrad/infrastructure/logger"

var log = logger.RegisterSubSystem("SMVR")
