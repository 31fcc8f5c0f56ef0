package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/devops-storefront/internal/domain/product"
)

const deviconBase = "https://cdn.jsdelivr.net/gh/devicons/devicon/icons/"

var fallbackProducts = []product.Product{
	{ID: "1", Name: "Docker Container", Description: "Containerization tool", Price: decimal.RequireFromString("29.99"), Image: deviconBase + "docker/docker-original.svg"},
	{ID: "2", Name: "Kubernetes Cluster", Description: "Orchestration platform", Price: decimal.RequireFromString("99.99"), Image: deviconBase + "kubernetes/kubernetes-plain.svg"},
	{ID: "3", Name: "AWS EC2 Instance", Description: "Cloud computing", Price: decimal.RequireFromString("49.99"), Image: deviconBase + "amazonwebservices/amazonwebservices-original-wordmark.svg"},
	{ID: "4", Name: "Jenkins Pipeline", Description: "CI/CD automation", Price: decimal.RequireFromString("39.99"), Image: deviconBase + "jenkins/jenkins-original.svg"},
	{ID: "5", Name: "Terraform Module", Description: "Infrastructure as Code", Price: decimal.RequireFromString("59.99"), Image: deviconBase + "terraform/terraform-original.svg"},
	{ID: "6", Name: "Prometheus Monitor", Description: "Monitoring solution", Price: decimal.RequireFromString("44.99"), Image: deviconBase + "prometheus/prometheus-original.svg"},
	{ID: "7", Name: "Grafana Dashboard", Description: "Visualization tool", Price: decimal.RequireFromString("34.99"), Image: deviconBase + "grafana/grafana-original.svg"},
	{ID: "8", Name: "Ansible Playbook", Description: "Configuration management", Price: decimal.RequireFromString("24.99"), Image: deviconBase + "ansible/ansible-original.svg"},
}

// Fallback returns the fixed local catalog used when the remote source is
// unavailable. Each call returns a fresh copy.
func Fallback() []product.Product {
	out := make([]product.Product, len(fallbackProducts))
	copy(out, fallbackProducts)
	return out
}
