package main

import "errors"

var errNoConfigPath = errors.New("--config is required")
