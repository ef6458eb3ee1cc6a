package ml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

var ErrShapeMismatch = errors.New("feature vector shape does not match model")

// Classifier holds the trained model and label decoder, loaded once at
// process start and read-only afterwards.
type Classifier struct {
	features int
	biases   []float64
	weights  [][]float64
	labels   []string
	log      *logrus.Logger
}

// NewClassifier loads the model and label artifacts. An error here is fatal
// for the process; it cannot serve predictions without both artifacts.
func NewClassifier(modelPath, labelsPath string, log *logrus.Logger) (*Classifier, error) {
	c := &Classifier{log: log}
	if err := c.loadModel(modelPath); err != nil {
		return nil, fmt.Errorf("failed to load model artifact: %w", err)
	}
	if err := c.loadLabels(labelsPath); err != nil {
		return nil, fmt.Errorf("failed to load label artifact: %w", err)
	}
	if len(c.labels) != len(c.weights) {
		return nil, fmt.Errorf("label count %d does not match class count %d", len(c.labels), len(c.weights))
	}
	log.Infof("Loaded classifier: %d classes, %d features", len(c.labels), c.features)
	return c, nil
}

// loadModel parses the linear one-vs-rest model document
func (c *Classifier) loadModel(path string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return err
	}

	root := doc.FindElement("//model")
	if root == nil {
		return fmt.Errorf("model element not found")
	}
	features, err := strconv.Atoi(root.SelectAttrValue("features", ""))
	if err != nil || features <= 0 {
		return fmt.Errorf("invalid features attribute")
	}
	c.features = features

	classes := root.FindElements("./class")
	if len(classes) == 0 {
		return fmt.Errorf("no classes found in model")
	}
	c.biases = make([]float64, len(classes))
	c.weights = make([][]float64, len(classes))
	for _, class := range classes {
		index, err := strconv.Atoi(class.SelectAttrValue("index", ""))
		if err != nil || index < 0 || index >= len(classes) {
			return fmt.Errorf("invalid class index")
		}

		biasElement := class.FindElement("./bias")
		if biasElement == nil {
			return fmt.Errorf("bias element not found for class %d", index)
		}
		bias, err := strconv.ParseFloat(strings.TrimSpace(biasElement.Text()), 64)
		if err != nil {
			return fmt.Errorf("failed to parse bias for class %d: %v", index, err)
		}

		weightsElement := class.FindElement("./weights")
		if weightsElement == nil {
			return fmt.Errorf("weights element not found for class %d", index)
		}
		fields := strings.Fields(weightsElement.Text())
		if len(fields) != features {
			return fmt.Errorf("class %d has %d weights, expected %d", index, len(fields), features)
		}
		weights := make([]float64, len(fields))
		for i, f := range fields {
			w, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("failed to parse weight for class %d: %v", index, err)
			}
			weights[i] = w
		}

		c.biases[index] = bias
		c.weights[index] = weights
	}
	return nil
}

// loadLabels parses the label decoder document mapping class index to name
func (c *Classifier) loadLabels(path string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return err
	}

	labelElements := doc.FindElements("//labels/label")
	if len(labelElements) == 0 {
		return fmt.Errorf("no labels found")
	}
	c.labels = make([]string, len(labelElements))
	for _, el := range labelElements {
		index, err := strconv.Atoi(el.SelectAttrValue("index", ""))
		if err != nil || index < 0 || index >= len(labelElements) {
			return fmt.Errorf("invalid label index")
		}
		name := strings.TrimSpace(el.Text())
		if name == "" {
			return fmt.Errorf("empty label for index %d", index)
		}
		c.labels[index] = name
	}
	for i, name := range c.labels {
		if name == "" {
			return fmt.Errorf("missing label for index %d", i)
		}
	}
	return nil
}

// Features returns the feature dimension the model expects.
func (c *Classifier) Features() int {
	return c.features
}

// Labels returns the decoder's label set in class-index order.
func (c *Classifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Predict scores the feature vector against every class and returns the label
// of the highest-scoring one.
func (c *Classifier) Predict(vector []float64) (string, error) {
	if len(vector) != c.features {
		return "", ErrShapeMismatch
	}

	best := 0
	bestScore := score(c.weights[0], c.biases[0], vector)
	for i := 1; i < len(c.weights); i++ {
		if s := score(c.weights[i], c.biases[i], vector); s > bestScore {
			best = i
			bestScore = s
		}
	}

	label := c.labels[best]
	c.log.Debugf("Predicted class %d (%s), score %.4f", best, label, bestScore)
	return label, nil
}

func score(weights []float64, bias float64, vector []float64) float64 {
	s := bias
	for i, w := range weights {
		s += w * vector[i]
	}
	return s
}
