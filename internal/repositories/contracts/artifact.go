package contracts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	//go:embed abi/GGProject.json
	projectABIJSON []byte
	//go:embed abi/GraphGrailToken.json
	tokenABIJSON []byte
)

const (
	ProjectContractName = "GGProject"
	TokenContractName   = "GraphGrailToken"
)

// ContractMeta is everything needed to bind or deploy a contract
type ContractMeta struct {
	Name     string
	ABI      *abi.ABI
	Bytecode []byte
}

func (m *ContractMeta) CanDeploy() bool {
	return len(m.Bytecode) > 0
}

// truffleArtifact is the relevant part of a truffle build output
type truffleArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

func ParseMeta(name string, abiJSON []byte, bytecode []byte) (*ContractMeta, error) {
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("cannot parse abi of %s: %w", name, err)
	}
	return &ContractMeta{Name: name, ABI: &parsed, Bytecode: bytecode}, nil
}

// LoadArtifact reads a truffle artifact, the abi and bytecode of which replace the embedded ones
func LoadArtifact(name string, path string) (*ContractMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var artifact truffleArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("cannot parse artifact %s: %w", path, err)
	}
	if len(artifact.ABI) == 0 {
		return nil, fmt.Errorf("artifact %s: %w", path, ErrNoABI)
	}

	var bytecode []byte
	if code := strings.TrimPrefix(strings.TrimSpace(artifact.Bytecode), "0x"); code != "" {
		bytecode, err = hexutil.Decode("0x" + code)
		if err != nil {
			return nil, fmt.Errorf("artifact %s has invalid bytecode: %w", path, err)
		}
	}
	return ParseMeta(name, artifact.ABI, bytecode)
}

// ProjectMeta returns the embedded abi when path is empty, such meta can bind but not deploy
func ProjectMeta(artifactPath string) (*ContractMeta, error) {
	if artifactPath != "" {
		return LoadArtifact(ProjectContractName, artifactPath)
	}
	return ParseMeta(ProjectContractName, projectABIJSON, nil)
}

func TokenMeta(artifactPath string) (*ContractMeta, error) {
	if artifactPath != "" {
		return LoadArtifact(TokenContractName, artifactPath)
	}
	return ParseMeta(TokenContractName, tokenABIJSON, nil)
}
