package main

import (
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/custody-chain/chaincode/custody-chain/contracts"
)

func main() {
	// Optional .env for local chaincode-as-a-service runs.
	_ = godotenv.Load()

	logger, err := newLogger(os.Getenv("CHAINCODE_ENV"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	chaincode, err := contractapi.NewChaincode(
		&contracts.PlatformContract{},
		&contracts.IdentityContract{},
		&contracts.SupplyChainContract{},
		&contracts.CommerceContract{},
		&contracts.TreasuryContract{},
	)
	if err != nil {
		logger.Fatal("failed to create custody chain chaincode", zap.Error(err))
	}

	if address := os.Getenv("CHAINCODE_SERVER_ADDRESS"); address != "" {
		runAsService(chaincode, address, logger)
		return
	}

	logger.Info("starting custody chain chaincode")
	if err := chaincode.Start(); err != nil {
		logger.Fatal("failed to start chaincode", zap.Error(err))
	}
}

// runAsService runs the chaincode as an external service.
func runAsService(chaincode *contractapi.ContractChaincode, address string, logger *zap.Logger) {
	server := &shim.ChaincodeServer{
		CCID:    os.Getenv("CHAINCODE_ID"),
		Address: address,
		CC:      chaincode,
		TLSProps: shim.TLSProperties{
			Disabled: true,
		},
	}

	logger.Info("starting custody chain chaincode server",
		zap.String("address", address),
		zap.String("ccid", server.CCID))

	if err := server.Start(); err != nil {
		logger.Fatal("failed to start chaincode server", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
