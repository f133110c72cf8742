package ldb

import (
	"github.com/umbraproject/umbrad/infrastructure/logger"
)

var log = logger.RegisterSubSystem("UMDB")
