package ekf_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEKF(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EKF Dynamics Suite")
}
