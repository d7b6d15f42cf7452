// models.go - Registrierung aller Modell-Architekturen
package models

import (
	_ "github.com/nnscope/nnscope/model/models/mlp"
)
