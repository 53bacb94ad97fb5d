package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Config locates the Fabric network and the local identity material.
// IdentityDir holds one directory per enrolled identity containing cert.pem
// and key.pem, the wallet layout used at enrollment time.
type Config struct {
	Endpoint    string // peer gRPC address, host:port
	GatewayPeer string // TLS server name override for the peer certificate
	TLSCertPath string // peer TLS CA certificate
	MSPID       string
	Channel     string
	Chaincode   string
	IdentityDir string
	Timeout     time.Duration // bound on endorse/submit/commit-status/evaluate
}

// Dialer owns the shared gRPC connection to the peer. Gateways are cheap
// per-identity handles on top of it; open one per request, signed as the
// acting user, instead of holding a global connected singleton.
type Dialer struct {
	cfg  Config
	conn *grpc.ClientConn
}

// NewDialer establishes the gRPC transport. It does not authenticate any
// identity yet; that happens per call in ForIdentity.
func NewDialer(cfg Config) (*Dialer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	creds, err := credentials.NewClientTLSFromFile(cfg.TLSCertPath, cfg.GatewayPeer)
	if err != nil {
		return nil, fmt.Errorf("load peer TLS certificate: %w", err)
	}
	conn, err := grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", cfg.Endpoint, err)
	}
	return &Dialer{cfg: cfg, conn: conn}, nil
}

// ForIdentity opens a gateway signed as the named enrolled identity.
func (d *Dialer) ForIdentity(name string) (Client, error) {
	id, sign, err := d.loadIdentity(name)
	if err != nil {
		return nil, err
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(d.conn),
		client.WithEvaluateTimeout(d.cfg.Timeout),
		client.WithEndorseTimeout(d.cfg.Timeout),
		client.WithSubmitTimeout(d.cfg.Timeout),
		client.WithCommitStatusTimeout(d.cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect gateway as %s: %w", name, err)
	}

	contract := gw.GetNetwork(d.cfg.Channel).GetContract(d.cfg.Chaincode)
	return &gatewayClient{gw: gw, contract: contract}, nil
}

func (d *Dialer) Close() error {
	return d.conn.Close()
}

func (d *Dialer) loadIdentity(name string) (*identity.X509Identity, identity.Sign, error) {
	dir := filepath.Join(d.cfg.IdentityDir, name)

	certPEM, err := os.ReadFile(filepath.Join(dir, "cert.pem"))
	if err != nil {
		return nil, nil, fmt.Errorf("identity %q not enrolled: %w", name, err)
	}
	cert, err := identity.CertificateFromPEM(certPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse certificate for %q: %w", name, err)
	}
	id, err := identity.NewX509Identity(d.cfg.MSPID, cert)
	if err != nil {
		return nil, nil, fmt.Errorf("build identity for %q: %w", name, err)
	}

	keyPEM, err := os.ReadFile(filepath.Join(dir, "key.pem"))
	if err != nil {
		return nil, nil, fmt.Errorf("read private key for %q: %w", name, err)
	}
	key, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse private key for %q: %w", name, err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, nil, fmt.Errorf("build signer for %q: %w", name, err)
	}
	return id, sign, nil
}

type gatewayClient struct {
	gw       *client.Gateway
	contract *client.Contract
}

// Submit endorses and submits the transaction, then waits for the network to
// commit it. The gateway's configured timeouts bound each stage, so a hung
// peer turns into an error instead of blocking the caller indefinitely.
func (g *gatewayClient) Submit(ctx context.Context, fn string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, commit, err := g.contract.SubmitAsync(fn, client.WithArguments(args...))
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", fn, err)
	}
	status, err := commit.Status()
	if err != nil {
		return "", fmt.Errorf("commit status for %s: %w", fn, err)
	}
	if !status.Successful {
		return "", fmt.Errorf("transaction %s failed with validation code %d", status.TransactionID, status.Code)
	}
	return status.TransactionID, nil
}

func (g *gatewayClient) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := g.contract.Evaluate(fn, client.WithArguments(args...))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", fn, err)
	}
	return result, nil
}

func (g *gatewayClient) Close() error {
	return g.gw.Close()
}
