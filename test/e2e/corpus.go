// Package e2e provides end-to-end tests that ingest textbook fixtures in every
// supported format and query them through the search engine.
package e2e

// Textbook is a short Spanish textbook excerpt, one paragraph per entry.
// Each paragraph carries one distinctive keyword used by the query cases.
var Textbook = []string{
	"Capítulo 1. El descenso por gradiente es un método de optimización que ajusta los parámetros de un modelo en la dirección opuesta a la derivada de la función de pérdida.",
	"Capítulo 2. Una red convolucional aplica filtros locales sobre la imagen de entrada y comparte pesos entre posiciones, lo que reduce el número de parámetros.",
	"Capítulo 3. Un clasificador bayesiano estima la probabilidad de cada clase a partir de la regla de Bayes y de la suposición de independencia entre atributos.",
	"Capítulo 4. En el aprendizaje por refuerzo un agente recibe una recompensa del entorno y aprende una política que maximiza el retorno acumulado.",
}

// QueryCase is a keyword query and a word the top passage must contain.
type QueryCase struct {
	Query   string
	MustHit string
}

// QueryCases has one case per textbook paragraph.
var QueryCases = []QueryCase{
	{Query: "gradiente", MustHit: "gradiente"},
	{Query: "convolucional", MustHit: "convolucional"},
	{Query: "bayesiano", MustHit: "bayesiano"},
	{Query: "recompensa", MustHit: "recompensa"},
}
